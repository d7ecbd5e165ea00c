package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/pdmerge/internal/models"
	"github.com/Lllllllleong/pdmerge/internal/services"
)

var (
	remoteMergeInstance *services.RemoteMergeFunction
	once                sync.Once
	initErr             error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleMerge", handleMerge)
	functions.CloudEvent("MergeOnManifest", mergeOnManifest)
}

// main is required by the Go Functions Framework.
func main() {}

func instance() (*services.RemoteMergeFunction, error) {
	once.Do(func() {
		remoteMergeInstance, initErr = services.NewRemoteMerge(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
	}
	return remoteMergeInstance, initErr
}

// handleMerge runs a merge request posted as JSON.
func handleMerge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	f, err := instance()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	req, err := models.DecodeRemoteMergeRequest(r.Body)
	if err != nil {
		slog.Error("Failed to decode request body", "error", err)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	resp, err := f.Process(r.Context(), req)
	if err != nil {
		http.Error(w, fmt.Sprintf("Merge failed: %v", err), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

// mergeOnManifest runs the merge described by an uploaded *.merge.json object.
func mergeOnManifest(ctx context.Context, e cloudevents.Event) error {
	f, err := instance()
	if err != nil {
		return err
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// The error is already logged with context within ProcessManifest.
	_, err = f.ProcessManifest(ctx, gcsEvent)
	return err
}

// statusFor maps a processing error to an HTTP status.
func statusFor(err error) int {
	var (
		buildErr *services.BuildError
		checkErr *services.CheckError
	)
	switch {
	case errors.As(err, &checkErr) && checkErr.Kind == services.OutputAlreadyExists:
		return http.StatusConflict
	case errors.As(err, &buildErr), errors.As(err, &checkErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
