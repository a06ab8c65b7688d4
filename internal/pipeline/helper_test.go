package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/nao1215/fuzznorm/internal/model"
	"github.com/nao1215/fuzznorm/internal/run"
)

const tntMetadata = `{"fuzzer":"tnt_fuzzer","target":"httpbin:Default","run_id":null,"duration":12.5}`

const tntStdout = "Fetching open API from: http://localhost/openapi.json\n" +
	"get|http://localhost/users?page=1|-|200|OK\n" +
	"post|http://localhost/users|-|500|None\n" +
	"delete|http://localhost/users/1|-|404|None\n"

const tntResult = `[{"method":"GET","path":"/users","type":"pass"},` +
	`{"method":"POST","path":"/users","type":"failure","kind":{"type":"server_error","status_code":500}},` +
	`{"method":"DELETE","path":"/users/1","type":"failure","kind":{"type":"unexpected_status_code","status_code":404}}]` + "\n"

const schemathesisMetadata = `{"fuzzer":"schemathesis:Default","target":"worklog:Linked","run_id":"r-1","duration":30}`

const schemathesisEvents = `{"event_type":"AfterExecution","result":{"method":"GET","path":"/users","checks":[` +
	`{"name":"not_a_server_error","value":"success","response":{"status_code":200},"context":null},` +
	`{"name":"not_a_server_error","value":"failure","response":{"status_code":500},"context":null}]}}` + "\n"

const schemathesisStdout = "FAILURES\nGET /users [P]\n1. Received a response with 5xx status code: 500\n"

const unclassifiedEvents = `{"event_type":"AfterExecution","result":{"method":"GET","path":"/a","checks":[` +
	`{"name":"custom_check","value":"failure"}]}}` + "\n"

// writeRunDir creates "<base>/<name>" with metadata.json and the given fuzzer files.
func writeRunDir(t *testing.T, base, name, metadata string, files map[string]string) run.Run {
	t.Helper()

	dir := filepath.Join(base, name)
	if err := os.MkdirAll(filepath.Join(dir, "fuzzer"), 0o750); err != nil {
		t.Fatalf("failed to create run directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, run.MetadataFile), []byte(metadata), 0o600); err != nil {
		t.Fatalf("failed to write metadata: %v", err)
	}
	for file, content := range files {
		if err := os.WriteFile(filepath.Join(dir, "fuzzer", file), []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write %s: %v", file, err)
		}
	}
	return run.Run{Name: name, Path: dir}
}

// readFile returns the content of path or fails the test.
func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path) //nolint:gosec // test file
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

// fakeRecorder is an in-memory Recorder.
type fakeRecorder struct {
	mu       sync.Mutex
	recorded []model.RunResult
	previous map[string]*model.RecordedRun
	err      error
}

func (f *fakeRecorder) RecordRun(_ context.Context, r model.RunResult) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return 0, f.err
	}
	f.recorded = append(f.recorded, r)
	return int64(len(f.recorded)), nil
}

func (f *fakeRecorder) GetRun(_ context.Context, name string) (*model.RecordedRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.previous[name], nil
}
