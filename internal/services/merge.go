package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Lllllllleong/pdmerge/internal/models"
)

// Merge is a validated set of merge arguments.
type Merge struct {
	Inputs           []string
	Output           string
	Override         bool
	AllowRepetition  bool
	CreateParentDirs bool
	Depth            Depth
	Order            OrderMode
}

// BuildMerge checks the shape of req and parses its depth and order
// tokens. Empty strings are dropped from the inputs.
func BuildMerge(req models.MergeRequest) (*Merge, error) {
	var inputs []string
	for _, in := range req.Inputs {
		if in = strings.TrimSpace(in); in != "" {
			inputs = append(inputs, in)
		}
	}
	if len(inputs) == 0 {
		return nil, &BuildError{Kind: InputIsEmpty}
	}
	output := strings.TrimSpace(req.Output)
	if output == "" {
		return nil, &BuildError{Kind: OutputIsEmpty}
	}
	depth, err := ParseDepth(req.Depth)
	if err != nil {
		return nil, err
	}
	order, err := ParseOrderMode(req.OrderBy)
	if err != nil {
		return nil, err
	}
	return &Merge{
		Inputs:           inputs,
		Output:           output,
		Override:         req.Override,
		AllowRepetition:  req.AllowRepetition,
		CreateParentDirs: req.CreateParentDirs,
		Depth:            depth,
		Order:            order,
	}, nil
}

// MergeConfig holds the tunables of a MergeService.
type MergeConfig struct {
	Workers  int
	Optimize bool
	Logger   *slog.Logger
}

// MergeService runs merges on the local filesystem.
type MergeService struct {
	config MergeConfig
}

func NewMergeService(config MergeConfig) *MergeService {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &MergeService{config: config}
}

// Process builds, checks and runs req.
func (s *MergeService) Process(ctx context.Context, req models.MergeRequest) (*models.RunSuccess, error) {
	m, err := BuildMerge(req)
	if err != nil {
		return nil, err
	}
	if err := m.Check(); err != nil {
		return nil, err
	}
	return s.Run(ctx, m)
}

// Run expands, merges and saves an already checked merge.
func (s *MergeService) Run(ctx context.Context, m *Merge) (*models.RunSuccess, error) {
	start := time.Now()
	logCtx := s.config.Logger.With("output", m.Output)

	// --- 1. Expand inputs ---
	files, err := CollectPaths(m.Inputs, m.Depth)
	if err != nil {
		return nil, err
	}
	if err := m.Order.Apply(files); err != nil {
		return nil, &RunError{Kind: CouldNotReadEntry, Err: err}
	}
	if !m.AllowRepetition {
		if p, ok := lastRepeated(files); ok {
			return nil, &RunError{Kind: InputRepeatedAfterExpansion, Path: p}
		}
	}
	logCtx.Info("Collected input files", "count", len(files), "depth", m.Depth.String(), "order", m.Order.String())

	// --- 2. Merge ---
	doc, err := NewMerger(s.config.Workers, logCtx).Merge(ctx, files)
	if err != nil {
		return nil, err
	}

	// --- 3. Finalize and save ---
	finalizer := &Finalizer{Optimize: s.config.Optimize, Logger: logCtx}
	pages, err := finalizer.Save(doc, m.Output, m.CreateParentDirs)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start).Seconds()
	logCtx.Info("Merge completed", "files", len(files), "pages", pages, "seconds", elapsed)
	return &models.RunSuccess{
		Files:   files,
		Seconds: elapsed,
		Output:  m.Output,
		Pages:   pages,
	}, nil
}

// Describe renders m for logs.
func (m *Merge) Describe() string {
	return fmt.Sprintf("%d input(s) -> %s (depth %s, order %s)", len(m.Inputs), m.Output, m.Depth, m.Order)
}
