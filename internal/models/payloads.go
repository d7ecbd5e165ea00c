package models

import (
	"encoding/json"
	"fmt"
	"io"
)

// These structs define the JSON payloads exchanged with the merge function
// and the values handed between the CLI and the merge pipeline.

// MergeRequest carries the raw arguments of a merge. Depth and OrderBy are
// kept as the tokens the user typed; the pipeline parses them.
type MergeRequest struct {
	Inputs           []string `json:"inputs"`
	Output           string   `json:"output"`
	Override         bool     `json:"override"`
	AllowRepetition  bool     `json:"allowRepetition"`
	CreateParentDirs bool     `json:"createParentDirs"`
	Depth            string   `json:"depth,omitempty"`
	OrderBy          string   `json:"orderBy,omitempty"`
}

// RunSuccess reports a completed merge.
type RunSuccess struct {
	Files   []string `json:"files"`
	Seconds float64  `json:"seconds"`
	Output  string   `json:"output"`
	Pages   int      `json:"pages"`
}

// RemoteMergeRequest is the input of the merge function. Inputs are
// gs:// URIs naming PDF objects, or prefixes ending in "/" whose PDF
// objects are merged in name order.
type RemoteMergeRequest struct {
	Inputs          []string `json:"inputs"`
	Output          string   `json:"output"`
	Override        bool     `json:"override"`
	AllowRepetition bool     `json:"allowRepetition"`
	ExecutionID     string   `json:"executionId"`
}

// RemoteMergeResponse is the output of the merge function.
type RemoteMergeResponse struct {
	Status       string `json:"status"`
	MergeID      string `json:"mergeId"`
	OutputGCSUri string `json:"outputGcsUri"`
	PageCount    int    `json:"pageCount"`
	SourceCount  int    `json:"sourceCount"`
}

// DecodeRemoteMergeRequest reads a RemoteMergeRequest from r. Unknown fields
// are rejected so that misspelled manifest keys are not silently ignored.
func DecodeRemoteMergeRequest(r io.Reader) (RemoteMergeRequest, error) {
	var req RemoteMergeRequest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return RemoteMergeRequest{}, fmt.Errorf("failed to decode merge request: %w", err)
	}
	return req, nil
}
