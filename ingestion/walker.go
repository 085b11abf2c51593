// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/legisearch/core"
	"github.com/poiesic/legisearch/storage"
)

// sourceFile identifies one JSON file found during a corpus walk.
type sourceFile struct {
	path    string
	region  string
	session string
}

// processFileFunc parses and stores the contents of one source file.
// Any error marks the file failed; the walk continues.
type processFileFunc func(ctx context.Context, file sourceFile) error

// walkCategory visits every *.json file under
// root/<region>/<session>/<category>/ in lexical order, driving each
// through the tracker lifecycle. Files already completed by a previous
// run are skipped. A session missing the category directory is skipped
// silently; the corpus is not required to carry every category
// everywhere.
func walkCategory(ctx context.Context, root string, category core.FileCategory, tracker storage.TrackerRepository, logger *slog.Logger, process processFileFunc) (*RunSummary, error) {
	summary := &RunSummary{}

	regions, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading corpus root %s: %w", root, err)
	}
	for _, region := range regions {
		if !region.IsDir() {
			continue
		}
		regionPath := filepath.Join(root, region.Name())
		sessions, err := os.ReadDir(regionPath)
		if err != nil {
			return nil, fmt.Errorf("reading region %s: %w", region.Name(), err)
		}
		for _, session := range sessions {
			if !session.IsDir() {
				continue
			}
			categoryPath := filepath.Join(regionPath, session.Name(), string(category))
			files, err := os.ReadDir(categoryPath)
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return nil, fmt.Errorf("reading %s: %w", categoryPath, err)
			}
			for _, entry := range files {
				if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
					continue
				}
				if err := ctx.Err(); err != nil {
					return summary, err
				}
				file := sourceFile{
					path:    filepath.Join(categoryPath, entry.Name()),
					region:  region.Name(),
					session: session.Name(),
				}
				result, err := visitFile(ctx, file, category, tracker, logger, process)
				if err != nil {
					return summary, err
				}
				summary.add(result)
			}
		}
	}
	return summary, nil
}

// visitFile runs one file through the tracker lifecycle. Only tracker
// failures propagate as errors; processing failures are recorded in the
// result and the walk moves on.
func visitFile(ctx context.Context, file sourceFile, category core.FileCategory, tracker storage.TrackerRepository, logger *slog.Logger, process processFileFunc) (FileResult, error) {
	result := FileResult{
		Path:     file.path,
		Category: category,
		Region:   file.region,
		Session:  file.session,
	}

	completed, err := tracker.IsCompleted(ctx, file.path)
	if err != nil {
		return result, fmt.Errorf("checking tracker for %s: %w", file.path, err)
	}
	if completed {
		result.Status = core.StatusCompleted
		result.Skipped = true
		return result, nil
	}

	if err := tracker.UpsertStatus(ctx, file.path, category, file.region, file.session, core.StatusProcessing); err != nil {
		return result, err
	}

	if err := process(ctx, file); err != nil {
		logger.Error("file processing failed", "path", file.path, "err", err)
		result.Status = core.StatusFailed
		result.Err = err
		if trackErr := tracker.UpsertStatus(ctx, file.path, category, file.region, file.session, core.StatusFailed); trackErr != nil {
			return result, trackErr
		}
		return result, nil
	}

	if err := tracker.UpsertStatus(ctx, file.path, category, file.region, file.session, core.StatusCompleted); err != nil {
		return result, err
	}
	result.Status = core.StatusCompleted
	return result, nil
}
