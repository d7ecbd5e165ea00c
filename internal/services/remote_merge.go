package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"github.com/Lllllllleong/pdmerge/internal/gcp"
	"github.com/Lllllllleong/pdmerge/internal/models"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"
)

// RemoteMergeConfig holds configuration for the merge function.
type RemoteMergeConfig struct {
	ProjectID           string
	MergedPDFBucket     string
	CollectionName      string
	WorkflowID          string
	WorkflowLocation    string
	DownloadConcurrency int
}

// RemoteMergeFunction merges PDFs stored in Cloud Storage.
type RemoteMergeFunction struct {
	storageClient    *storage.Client
	firestoreClient  *firestore.Client
	executionsClient *executions.Client
	config           RemoteMergeConfig
}

// GCSEvent is the payload of a Cloud Storage object event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// sourceObject is one PDF to download.
type sourceObject struct {
	bucket string
	name   string
}

func (s sourceObject) uri() string { return "gs://" + s.bucket + "/" + s.name }

// repeatedSource returns the last source whose object also appears earlier.
func repeatedSource(sources []sourceObject) (string, bool) {
	uris := make([]string, len(sources))
	for i, s := range sources {
		uris[i] = s.uri()
	}
	return lastRepeated(uris)
}

func NewRemoteMerge(ctx context.Context) (*RemoteMergeFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	config := RemoteMergeConfig{
		ProjectID:           projectID,
		MergedPDFBucket:     gcp.GetEnv("MERGED_PDF_BUCKET", ""),
		CollectionName:      gcp.GetEnv("FIRESTORE_COLLECTION", "merges"),
		WorkflowID:          gcp.GetEnv("WORKFLOW_ID", ""),
		WorkflowLocation:    gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		DownloadConcurrency: gcp.GetEnvInt("DOWNLOAD_CONCURRENCY", 8),
	}
	if config.MergedPDFBucket == "" {
		return nil, fmt.Errorf("MERGED_PDF_BUCKET environment variable must be set")
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}

	f := &RemoteMergeFunction{
		firestoreClient: firestoreClient,
		storageClient:   storageClient,
		config:          config,
	}
	if config.WorkflowID != "" {
		f.executionsClient, err = executions.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
		}
	}
	slog.Info("Remote merge logic initialized.", "bucket", config.MergedPDFBucket, "workflowId", config.WorkflowID)
	return f, nil
}

// validateRemoteRequest checks the parts of a request that need no I/O.
func validateRemoteRequest(req models.RemoteMergeRequest) error {
	if len(req.Inputs) == 0 {
		return &BuildError{Kind: InputIsEmpty}
	}
	if req.Output == "" {
		return &BuildError{Kind: OutputIsEmpty}
	}
	for _, in := range req.Inputs {
		if _, _, err := gcp.ParseGCSURI(in); err != nil {
			return err
		}
		if hasDirectoryReference(in) {
			return &CheckError{Kind: InputIsDirectoryReference, Path: in}
		}
	}
	if hasDirectoryReference(req.Output) || strings.HasPrefix(req.Output, "/") {
		return &CheckError{Kind: OutputIsDirectoryReference, Path: req.Output}
	}
	if path.Ext(req.Output) != ".pdf" {
		return &CheckError{Kind: OutputIsNotPdfFile, Path: req.Output}
	}
	return nil
}

// Process merges the request's inputs into an object of the merged bucket.
func (f *RemoteMergeFunction) Process(ctx context.Context, req models.RemoteMergeRequest) (*models.RemoteMergeResponse, error) {
	logCtx := slog.With("output", req.Output, "executionId", req.ExecutionID)
	logCtx.Info("Processing merge request.", "inputs", len(req.Inputs))

	if err := validateRemoteRequest(req); err != nil {
		logCtx.Error("Rejected merge request", "error", err)
		return nil, err
	}

	docRef, _, err := f.firestoreClient.Collection(f.config.CollectionName).Add(ctx, models.MergeRun{
		Inputs:      req.Inputs,
		Output:      req.Output,
		Status:      "RESOLVING",
		ExecutionID: req.ExecutionID,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		logCtx.Error("Failed to create merge record", "error", err)
		return nil, fmt.Errorf("failed to create merge record: %w", err)
	}
	logCtx = logCtx.With("mergeId", docRef.ID)

	// --- 1. Resolve URIs and prefixes ---
	sources, err := f.resolveInputs(ctx, req.Inputs)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to resolve inputs", err)
	}
	if len(sources) < 2 {
		return nil, f.handleError(ctx, logCtx, docRef, "not enough sources to merge",
			&CheckError{Kind: InputIsSingleFile, Path: strings.Join(req.Inputs, ",")})
	}
	if !req.AllowRepetition {
		if uri, ok := repeatedSource(sources); ok {
			return nil, f.handleError(ctx, logCtx, docRef, "input repeated after expansion",
				&RunError{Kind: InputRepeatedAfterExpansion, Path: uri})
		}
	}

	tempDir, err := os.MkdirTemp("", "pdf-merge-*")
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to create temp dir", err)
	}
	defer os.RemoveAll(tempDir)

	// --- 2. Download ---
	if err := gcp.UpdateStatus(ctx, docRef, "DOWNLOADING", ""); err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to update status to DOWNLOADING", err)
	}
	localPaths, err := f.downloadSources(ctx, logCtx, sources, tempDir)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "one or more sources failed to download", err)
	}

	// --- 3. Merge ---
	if err := gcp.UpdateStatus(ctx, docRef, "MERGING", ""); err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to update status to MERGING", err)
	}
	doc, err := NewMerger(f.config.DownloadConcurrency, logCtx).Merge(ctx, localPaths)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to merge sources", describeSource(err, localPaths, sources))
	}
	outputPath := filepath.Join(tempDir, "merged.pdf")
	finalizer := &Finalizer{Optimize: true, Logger: logCtx}
	if _, err := finalizer.Save(doc, outputPath, false); err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to save merged PDF", err)
	}
	pageCount, err := api.PageCountFile(outputPath)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to get page count", err)
	}
	logCtx.Info("PDF merged locally.", "sources", len(sources), "pageCount", pageCount)

	// --- 4. Upload ---
	if err := gcp.UpdateStatus(ctx, docRef, "UPLOADING", ""); err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to update status to UPLOADING", err)
	}
	bucket := f.storageClient.Bucket(f.config.MergedPDFBucket)
	if err := gcp.UploadFile(ctx, bucket, outputPath, req.Output, req.Override); err != nil {
		if errors.Is(err, gcp.ErrObjectExists) {
			err = &CheckError{Kind: OutputAlreadyExists, Path: req.Output, Err: err}
		}
		return nil, f.handleError(ctx, logCtx, docRef, "failed to upload merged PDF", err)
	}

	// --- 5. Hand off ---
	workflowExecution, err := f.triggerWorkflow(ctx, logCtx, docRef, req, pageCount)
	if err != nil {
		return nil, err
	}

	updates := []firestore.Update{
		{Path: "status", Value: "COMPLETED"},
		{Path: "sourceCount", Value: len(sources)},
		{Path: "pageCount", Value: pageCount},
	}
	if workflowExecution != "" {
		updates = append(updates, firestore.Update{Path: "workflowExecutionId", Value: workflowExecution})
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to update status to COMPLETED", err)
	}

	outputURI := fmt.Sprintf("gs://%s/%s", f.config.MergedPDFBucket, req.Output)
	logCtx.Info("Merge request complete.", "outputGcsUri", outputURI)
	return &models.RemoteMergeResponse{
		Status:       "COMPLETED",
		MergeID:      docRef.ID,
		OutputGCSUri: outputURI,
		PageCount:    pageCount,
		SourceCount:  len(sources),
	}, nil
}

// ProcessManifest reads a merge request stored as a JSON object and runs it.
func (f *RemoteMergeFunction) ProcessManifest(ctx context.Context, e GCSEvent) (*models.RemoteMergeResponse, error) {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	if !IsManifest(e.Name) {
		logCtx.Info("Object is not a merge manifest. Skipping.")
		return nil, nil
	}
	reader, err := f.storageClient.Bucket(e.Bucket).Object(e.Name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", e.Bucket, e.Name, err)
	}
	defer reader.Close()

	req, err := models.DecodeRemoteMergeRequest(reader)
	if err != nil {
		logCtx.Error("Failed to decode merge manifest", "error", err)
		return nil, err
	}
	if req.ExecutionID == "" {
		req.ExecutionID = e.Name
	}
	return f.Process(ctx, req)
}

// IsManifest reports whether an object name is a merge manifest.
func IsManifest(name string) bool {
	return strings.HasSuffix(name, ".merge.json")
}

// resolveInputs expands prefixes into their PDF objects, keeping the order
// of the inputs.
func (f *RemoteMergeFunction) resolveInputs(ctx context.Context, inputs []string) ([]sourceObject, error) {
	var sources []sourceObject
	for _, in := range inputs {
		bucketName, object, err := gcp.ParseGCSURI(in)
		if err != nil {
			return nil, err
		}
		if object != "" && !strings.HasSuffix(object, "/") {
			sources = append(sources, sourceObject{bucket: bucketName, name: object})
			continue
		}
		names, err := gcp.ListPDFObjects(ctx, f.storageClient.Bucket(bucketName), object)
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, &RunError{Kind: EntryDoesNotExist, Path: in}
		}
		for _, name := range names {
			sources = append(sources, sourceObject{bucket: bucketName, name: name})
		}
	}
	return sources, nil
}

func (f *RemoteMergeFunction) downloadSources(ctx context.Context, logCtx *slog.Logger, sources []sourceObject, dir string) ([]string, error) {
	logCtx.Info("Starting concurrent download of sources.", "count", len(sources))
	localPaths := make([]string, len(sources))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(f.config.DownloadConcurrency)

	for i, src := range sources {
		localPaths[i] = filepath.Join(dir, localName(i))
		eg.Go(func() error {
			if err := gcp.DownloadObject(gctx, f.storageClient.Bucket(src.bucket), src.name, localPaths[i]); err != nil {
				return fmt.Errorf("%s: %w", src.uri(), err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	logCtx.Info("All sources downloaded successfully.")
	return localPaths, nil
}

func localName(i int) string {
	return fmt.Sprintf("%05d.pdf", i+1)
}

// describeSource replaces a temporary path in a RunError with the URI it
// was downloaded from.
func describeSource(err error, localPaths []string, sources []sourceObject) error {
	var runErr *RunError
	if !errors.As(err, &runErr) {
		return err
	}
	for i, p := range localPaths {
		if runErr.Path == p {
			return &RunError{Kind: runErr.Kind, Path: sources[i].uri(), Err: runErr.Err}
		}
	}
	return err
}

func (f *RemoteMergeFunction) triggerWorkflow(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, req models.RemoteMergeRequest, pageCount int) (string, error) {
	if f.executionsClient == nil {
		return "", nil
	}
	logCtx.Info("Triggering workflow.")
	payload := map[string]interface{}{
		"mergeId":      docRef.ID,
		"outputGcsUri": fmt.Sprintf("gs://%s/%s", f.config.MergedPDFBucket, req.Output),
		"pageCount":    pageCount,
	}
	parent := gcp.WorkflowParent(f.config.ProjectID, f.config.WorkflowLocation, f.config.WorkflowID)
	name, err := gcp.StartExecution(ctx, f.executionsClient, parent, payload)
	if err != nil {
		return "", f.handleError(ctx, logCtx, docRef, "failed to hand off to workflow", err)
	}
	return name, nil
}

func (f *RemoteMergeFunction) handleError(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := gcp.UpdateStatus(ctx, docRef, "FAILED", fullError); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s: %w", message, originalErr)
}
