package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/fuzznorm/internal/engine"
	"github.com/nao1215/fuzznorm/internal/model"
)

var restlerRequestRe = regexp.MustCompile(`(?s)Sending: '(\w+?) (.+?) HTTP.+?Received: 'HTTP/[0-2]\.[0-9] ([0-9]{3})`)

const (
	restlerResultsDir     = "Test/RestlerResults"
	restlerBucketsFile    = "Test/ResponseBuckets/errorBuckets.json"
	restlerNetworkLogStem = "network.testing"
	restlerSequenceMarker = "Generation-1: Rendering Sequence"
	restlerMainLog        = "main.txt"
)

// parseRestler parses the testing network log of a RESTler experiment.
// Every request/response pair inside a rendered sequence is one test case.
func parseRestler(dir string, _ Options) (Cases, error) {
	logFile, err := restlerNetworkLog(dir)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(logFile) //nolint:gosec // path is built from the run directory
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", logFile, err)
	}

	blocks := strings.Split(string(data), restlerSequenceMarker)
	e := engine.Engine{Family: engine.Restler}
	return func(yield func(model.TestCase, error) bool) {
		for _, block := range blocks[1:] {
			for _, m := range restlerRequestRe.FindAllStringSubmatch(block, -1) {
				tc, err := classifyRestlerRequest(m[1], m[2], m[3])
				if err != nil {
					yield(model.TestCase{}, newBlockError(e, m[0], err))
					return
				}
				if !yield(tc, nil) {
					return
				}
			}
		}
	}, nil
}

func classifyRestlerRequest(method, target, status string) (model.TestCase, error) {
	path, err := normalizePath(target)
	if err != nil {
		return model.TestCase{}, err
	}
	code, err := strconv.Atoi(status)
	if err != nil || !model.ValidStatusCode(code) {
		return model.TestCase{}, malformed("invalid status code %q", status)
	}
	method = normalizeMethod(method)
	if model.IsServerError(code) {
		return model.NewServerError(method, path, code), nil
	}
	// RESTler reports no other kind of failure.
	return model.NewPass(method, path), nil
}

// restlerNetworkLog finds the testing network log of the single experiment
// stored under Test/RestlerResults.
func restlerNetworkLog(dir string) (string, error) {
	resultsDir := filepath.Join(dir, filepath.FromSlash(restlerResultsDir))
	experiments, err := os.ReadDir(resultsDir)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", resultsDir, err)
	}
	i := slices.IndexFunc(experiments, fs.DirEntry.IsDir)
	if i < 0 {
		return "", fmt.Errorf("no experiment directory in %s: %w", resultsDir, fs.ErrNotExist)
	}

	logsDir := filepath.Join(resultsDir, experiments[i].Name(), "logs")
	logs, err := os.ReadDir(logsDir)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", logsDir, err)
	}
	for _, entry := range logs {
		name := entry.Name()
		if entry.Type().IsRegular() && strings.HasPrefix(name, restlerNetworkLogStem) && name != restlerMainLog {
			return filepath.Join(logsDir, name), nil
		}
	}
	return "", fmt.Errorf("no %s log in %s: %w", restlerNetworkLogStem, logsDir, fs.ErrNotExist)
}

// restlerBucket is one request/response pair of an error bucket.
// It is comparable so that identical pairs collapse in a set.
type restlerBucket struct {
	Request struct {
		RequestData restlerRequest `json:"RequestData"` //nolint:tagliatelle // RESTler field name
	} `json:"request"`
	Response struct {
		ResponseData restlerResponse `json:"ResponseData"` //nolint:tagliatelle // RESTler field name
	} `json:"response"`
}

type restlerRequest struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Query  string `json:"query"`
	Body   string `json:"body"`
}

type restlerResponse struct {
	Code    int    `json:"code"`
	Content string `json:"content"`
}

// deduplicateRestler collapses the 5xx error buckets into one entry per endpoint.
// A run without an error bucket file has nothing to deduplicate.
func deduplicateRestler(dir string) ([]model.DedupEntry, error) {
	path := filepath.Join(dir, filepath.FromSlash(restlerBucketsFile))
	data, err := os.ReadFile(path) //nolint:gosec // path is built from the run directory
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var buckets map[string]map[string][]json.RawMessage
	if err := json.Unmarshal(data, &buckets); err != nil {
		return nil, malformed("invalid error buckets: %v", err)
	}

	e := engine.Engine{Family: engine.Restler}
	unique := make(map[restlerBucket]struct{})
	for status, byKind := range buckets {
		if !strings.HasPrefix(status, "5") {
			continue
		}
		for _, pairs := range byKind {
			for _, raw := range pairs {
				var b restlerBucket
				if err := json.Unmarshal(raw, &b); err != nil {
					return nil, newBlockError(e, string(raw), malformed("invalid bucket: %v", err))
				}
				unique[b] = struct{}{}
			}
		}
	}

	collector := model.NewDedupCollector()
	for b := range unique {
		req := b.Request.RequestData
		path, err := normalizePath(req.Path)
		if err != nil {
			return nil, newBlockError(e, req.Path, err)
		}
		collector.Add(normalizeMethod(req.Method), path, model.DedupCategoryServerError)
	}
	if collector.Len() == 0 {
		return nil, nil
	}
	return collector.Entries(), nil
}
