// Package preparation implements the idempotent, four-stage pipeline that
// turns a raw source CSV into a clustered MessageTable: normalize and
// validate the schema, train a template miner over every message, assign a
// template to every message, then drop the intermediate cache. Every stage
// is guarded by a file-existence check, so re-running the pipeline against
// the same storage directory picks up wherever a previous run left off
// instead of redoing work.
package preparation

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arianrashidi/rootcause-go/internal/config"
	"github.com/arianrashidi/rootcause-go/internal/csvio"
	"github.com/arianrashidi/rootcause-go/internal/display"
	"github.com/arianrashidi/rootcause-go/internal/messagetable"
	"github.com/arianrashidi/rootcause-go/internal/rcerrors"
	"github.com/arianrashidi/rootcause-go/internal/template"
)

// requiredColumns lists every column the post-clustering schema carries,
// beyond line_id. Mirrors the reference's LogMessages.required_columns.
var requiredColumns = []string{"timestamp", "content", "service", "template", "service_template_id"}

// Paths resolves the cache file locations derived from a dataset name and
// storage directory: one pre-clustering CSV, one post-clustering CSV, and
// one drain state file.
type Paths struct {
	PreClustering  string
	PostClustering string
	DrainState     string
}

// PathsFor computes the cache file locations for cfg.
func PathsFor(cfg *config.Settings) Paths {
	return Paths{
		PreClustering:  filepath.Join(cfg.StorageDir, cfg.DatasetName+".pre_clustering.csv"),
		PostClustering: filepath.Join(cfg.StorageDir, cfg.DatasetName+".post_clustering.csv"),
		DrainState:     filepath.Join(cfg.StorageDir, cfg.DatasetName+".drain.json"),
	}
}

// Pipeline prepares and caches a dataset for one dataset name / storage
// directory pair.
type Pipeline struct {
	cfg         *config.Settings
	templateCfg template.Config
	output      display.Output
	paths       Paths
}

// New creates a Pipeline. output may be nil, defaulting to display.Silent.
func New(cfg *config.Settings, templateCfg template.Config, output display.Output) *Pipeline {
	if output == nil {
		output = display.Silent{}
	}
	return &Pipeline{cfg: cfg, templateCfg: templateCfg, output: output, paths: PathsFor(cfg)}
}

// Load returns the prepared MessageTable, running whichever stages of the
// pipeline have not already run against this storage directory.
func (p *Pipeline) Load(ctx context.Context) (*messagetable.MessageTable, error) {
	tbl, err := p.readCSV()
	if err != nil {
		return nil, err
	}

	if csvio.Exists(p.paths.PostClustering) {
		p.output.PrintCompletion("Dataset loaded")
		return buildMessageTable(tbl)
	}

	tbl, err = p.prepareForTemplateClustering(tbl)
	if err != nil {
		return nil, err
	}
	if err := p.createTemplateClusters(ctx, tbl); err != nil {
		return nil, err
	}
	tbl, err = p.assignTemplates(ctx, tbl)
	if err != nil {
		return nil, err
	}
	p.deletePreClusteringData()

	p.output.PrintCompletion("Dataset loaded and prepared")
	return buildMessageTable(tbl)
}

// readCSV loads whichever cache file is furthest along: the post-clustering
// file if present, else the pre-clustering file, else the original source.
func (p *Pipeline) readCSV() (csvio.Table, error) {
	var path string
	var templateRequired bool
	switch {
	case csvio.Exists(p.paths.PostClustering):
		path = p.paths.PostClustering
		templateRequired = true
	case csvio.Exists(p.paths.PreClustering):
		path = p.paths.PreClustering
	default:
		path = p.cfg.SourceCSVFile
	}

	p.output.PrintHeadline("Loading dataset from CSV file")
	tbl, err := csvio.Read(path)
	if err != nil {
		return csvio.Table{}, err
	}

	if path != p.cfg.SourceCSVFile {
		if err := messagetable.EnsureRequiredColumnsExist(tbl.Headers, templateRequired); err != nil {
			return csvio.Table{}, err
		}
	}
	return tbl, nil
}

// prepareForTemplateClustering normalizes column names, combines day/time
// columns into a timestamp, validates the schema and timestamp contract, and
// caches the result. A no-op once either cache file already exists.
func (p *Pipeline) prepareForTemplateClustering(tbl csvio.Table) (csvio.Table, error) {
	if csvio.Exists(p.paths.PreClustering) || csvio.Exists(p.paths.PostClustering) {
		return tbl, nil
	}
	p.output.PrintNext("Preparing dataset for template clustering")

	headers := messagetable.NormalizeColumnNames(tbl.Headers)
	headers, rows := messagetable.CombineDaytimeToTimestamps(headers, tbl.Rows)
	if err := messagetable.EnsureRequiredColumnsExist(headers, false); err != nil {
		return csvio.Table{}, err
	}
	headers, rows = removeUnnecessaryColumns(headers, rows)

	timestampIdx, _ := columnIndex(headers, "timestamp")
	times, err := parseTimestampColumn(rows, timestampIdx)
	if err != nil {
		return csvio.Table{}, err
	}
	if err := messagetable.ValidateTimestampOrder(times); err != nil {
		return csvio.Table{}, err
	}

	out := csvio.Table{Headers: headers, Rows: rows}
	if err := csvio.Write(p.paths.PreClustering, out); err != nil {
		return csvio.Table{}, err
	}
	return out, nil
}

// createTemplateClusters trains the template miner over every message's
// content, single-threaded, and persists the learned template set. A no-op
// once the drain state file exists or the post-clustering cache already
// does.
func (p *Pipeline) createTemplateClusters(ctx context.Context, tbl csvio.Table) error {
	if csvio.Exists(p.paths.DrainState) || csvio.Exists(p.paths.PostClustering) {
		return nil
	}
	p.output.PrintNext("Creating template clusters")

	contentIdx, ok := columnIndex(tbl.Headers, "content")
	if !ok {
		return rcerrors.NewMissingColumn("content")
	}

	assigner := template.New(p.templateCfg)
	for _, row := range tbl.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		assigner.Train(row[contentIdx])
	}

	return assigner.Save(p.paths.DrainState)
}

// assignTemplates matches every message against the trained template
// miner, in parallel chunks bounded by ChunkSize, then derives
// service_template_id and caches the result. A no-op once the
// post-clustering cache already exists.
func (p *Pipeline) assignTemplates(ctx context.Context, tbl csvio.Table) (csvio.Table, error) {
	if csvio.Exists(p.paths.PostClustering) {
		return tbl, nil
	}
	p.output.PrintNext("Assigning the templates to their log messages")

	contentIdx, ok := columnIndex(tbl.Headers, "content")
	if !ok {
		return csvio.Table{}, rcerrors.NewMissingColumn("content")
	}

	assigner, err := template.Load(p.templateCfg, p.paths.DrainState)
	if err != nil {
		return csvio.Table{}, err
	}

	templates := make([]string, len(tbl.Rows))
	if err := p.matchChunked(ctx, tbl.Rows, contentIdx, assigner, templates); err != nil {
		return csvio.Table{}, err
	}

	serviceIdx, _ := columnIndex(tbl.Headers, "service")
	ids := assignServiceTemplateIDs(tbl.Rows, serviceIdx, templates)

	headers := append(append([]string{}, tbl.Headers...), "template", "service_template_id")
	rows := make([][]string, len(tbl.Rows))
	for i, row := range tbl.Rows {
		rows[i] = append(append([]string{}, row...), templates[i], strconv.Itoa(ids[i]))
	}

	out := csvio.Table{Headers: headers, Rows: rows}
	if err := csvio.Write(p.paths.PostClustering, out); err != nil {
		return csvio.Table{}, err
	}
	return out, nil
}

// matchChunked runs assigner.Match over every row's content, splitting the
// work into ChunkSize-bounded chunks processed concurrently via errgroup
// when ParallelProcessing is enabled. Match only reads the trained model, so
// concurrent calls across chunks are safe.
func (p *Pipeline) matchChunked(ctx context.Context, rows [][]string, contentIdx int, assigner *template.Assigner, out []string) error {
	if len(rows) == 0 {
		return nil
	}

	chunkSize := p.cfg.ChunkSize
	if chunkSize <= 0 || chunkSize > len(rows) {
		chunkSize = len(rows)
	}

	if !p.cfg.ParallelProcessing {
		for i, row := range rows {
			out[i] = assigner.Match(row[contentIdx])
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(rows); start += chunkSize {
		start := start
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				out[i] = assigner.Match(rows[i][contentIdx])
			}
			return nil
		})
	}
	return g.Wait()
}

// deletePreClusteringData removes the pre-clustering cache file once the
// post-clustering one has been produced.
func (p *Pipeline) deletePreClusteringData() {
	if csvio.Exists(p.paths.PreClustering) {
		os.Remove(p.paths.PreClustering)
	}
}

func columnIndex(headers []string, name string) (int, bool) {
	for i, h := range headers {
		if h == name {
			return i, true
		}
	}
	return 0, false
}

// removeUnnecessaryColumns keeps line_id plus the post-clustering schema's
// required columns, dropping anything else the source CSV carried.
func removeUnnecessaryColumns(headers []string, rows [][]string) ([]string, [][]string) {
	keep := map[string]bool{"line_id": true}
	for _, c := range requiredColumns {
		keep[c] = true
	}

	var keepIdx []int
	var newHeaders []string
	for i, h := range headers {
		if keep[h] {
			keepIdx = append(keepIdx, i)
			newHeaders = append(newHeaders, h)
		}
	}

	newRows := make([][]string, len(rows))
	for i, row := range rows {
		newRow := make([]string, len(keepIdx))
		for j, idx := range keepIdx {
			if idx < len(row) {
				newRow[j] = row[idx]
			}
		}
		newRows[i] = newRow
	}
	return newHeaders, newRows
}

// assignServiceTemplateIDs groups rows by (service, template) pair in
// first-appearance order, the same policy as
// messagetable.MessageTable.AssignServiceTemplateIDs, applied here to raw
// CSV rows before a MessageTable exists.
func assignServiceTemplateIDs(rows [][]string, serviceIdx int, templates []string) []int {
	type pairKey struct{ service, template string }
	ids := make(map[pairKey]int)
	out := make([]int, len(rows))
	next := 1
	for i, row := range rows {
		service := ""
		if serviceIdx >= 0 && serviceIdx < len(row) {
			service = row[serviceIdx]
		}
		key := pairKey{service: service, template: templates[i]}
		id, ok := ids[key]
		if !ok {
			id = next
			ids[key] = id
			next++
		}
		out[i] = id
	}
	return out
}

// buildMessageTable parses a fully-prepared csvio.Table into a
// MessageTable. template/service_template_id columns are optional: their
// absence yields a pre-clustering-schema table.
func buildMessageTable(tbl csvio.Table) (*messagetable.MessageTable, error) {
	lineIdx, hasLineID := columnIndex(tbl.Headers, "line_id")
	tsIdx, ok := columnIndex(tbl.Headers, "timestamp")
	if !ok {
		return nil, rcerrors.NewMissingColumn("timestamp")
	}
	contentIdx, ok := columnIndex(tbl.Headers, "content")
	if !ok {
		return nil, rcerrors.NewMissingColumn("content")
	}
	serviceIdx, ok := columnIndex(tbl.Headers, "service")
	if !ok {
		return nil, rcerrors.NewMissingColumn("service")
	}
	templateIdx, hasTemplateCol := columnIndex(tbl.Headers, "template")
	stIDIdx, hasSTIDCol := columnIndex(tbl.Headers, "service_template_id")
	hasTemplate := hasTemplateCol && hasSTIDCol

	n := len(tbl.Rows)
	lineID := make([]int, n)
	content := make([]string, n)
	service := make([]string, n)
	var tmpl []string
	var stID []int
	if hasTemplate {
		tmpl = make([]string, n)
		stID = make([]int, n)
	}

	times, err := parseTimestampColumn(tbl.Rows, tsIdx)
	if err != nil {
		return nil, err
	}

	for i, row := range tbl.Rows {
		if hasLineID && lineIdx < len(row) {
			id, err := strconv.Atoi(row[lineIdx])
			if err != nil {
				return nil, rcerrors.NewMissingColumn("line_id")
			}
			lineID[i] = id
		} else {
			lineID[i] = i
		}
		content[i] = row[contentIdx]
		service[i] = row[serviceIdx]
		if hasTemplate {
			tmpl[i] = row[templateIdx]
			id, err := strconv.Atoi(row[stIDIdx])
			if err != nil {
				return nil, rcerrors.NewMissingColumn("service_template_id")
			}
			stID[i] = id
		}
	}

	return messagetable.New(lineID, times, content, service, tmpl, stID), nil
}

func parseTimestampColumn(rows [][]string, tsIdx int) ([]time.Time, error) {
	out := make([]time.Time, len(rows))
	for i, row := range rows {
		t, err := messagetable.ValidateTimestampFormat(row[tsIdx])
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}
