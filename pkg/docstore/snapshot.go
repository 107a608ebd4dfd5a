package docstore

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
)

// Snapshot file names under the storage root. The three parts are saved
// together after every mutation and loaded independently at startup; a part
// that fails to load resets to empty rather than aborting startup.
const (
	recordsFile = "records.json"
	fileIDsFile = "file_ids.json"
	indexesFile = "indexes.json"
)

func (s *Store) load() {
	recordsPath := filepath.Join(s.dir, recordsFile)
	fileIDsPath := filepath.Join(s.dir, fileIDsFile)
	indexesPath := filepath.Join(s.dir, indexesFile)

	var records []DocumentRecord
	if loadJSON(recordsPath, &records) {
		for _, record := range records {
			s.records[record.DocumentID] = record
			s.order = append(s.order, record.DocumentID)
		}
		slog.Info("loaded document records", "path", recordsPath, "count", len(records))
	}

	var fileIDs map[string]string
	if loadJSON(fileIDsPath, &fileIDs) {
		s.fileIDs = fileIDs
		slog.Info("loaded file ID mappings", "path", fileIDsPath, "count", len(fileIDs))
	}

	var indexes []IndexEntry
	if loadJSON(indexesPath, &indexes) {
		s.indexes = indexes
		slog.Info("loaded index registry", "path", indexesPath, "count", len(indexes))
	}
}

// loadJSON reads one snapshot part. Missing files are normal on first run;
// decode failures are logged and treated as an empty part.
func loadJSON(path string, out interface{}) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("failed to read snapshot part", "path", path, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		slog.Error("failed to decode snapshot part", "path", path, "error", err)
		return false
	}
	return true
}

// save rewrites all three snapshot parts wholesale. Callers hold s.mu.
// The parts are not written transactionally; a crash between writes can
// leave them inconsistent, which is an accepted risk.
func (s *Store) save() {
	records := make([]DocumentRecord, 0, len(s.order))
	for _, id := range s.order {
		records = append(records, s.records[id])
	}

	saveJSON(filepath.Join(s.dir, recordsFile), records)
	saveJSON(filepath.Join(s.dir, fileIDsFile), s.fileIDs)
	saveJSON(filepath.Join(s.dir, indexesFile), s.indexes)
}

func saveJSON(path string, in interface{}) {
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		slog.Error("failed to encode snapshot part", "path", path, "error", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		slog.Error("failed to write snapshot part", "path", path, "error", err)
	}
}
