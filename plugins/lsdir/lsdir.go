// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

// Package lsdir implements the built-in directory listing plugin. It
// publishes the entries of a directory as a paged list output and keeps
// the listing fresh while the run is live: consumers pull further pages
// with load-more requests, and a changed directory argument triggers a
// full reload.
package lsdir

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/samber/oops"

	"github.com/tooltrain/tooltrain/internal/datatype"
	"github.com/tooltrain/tooltrain/internal/engine"
	"github.com/tooltrain/tooltrain/internal/host"
	"github.com/tooltrain/tooltrain/internal/observability"
	"github.com/tooltrain/tooltrain/internal/plugin/capability"
	"github.com/tooltrain/tooltrain/internal/schema"
	"github.com/tooltrain/tooltrain/internal/stream"
)

// Name is the plugin's registered name.
const Name = "lsdir"

// capabilityRead guards filesystem reads.
const capabilityRead = "fs.read.dir"

const defaultPageSize = 64

// entriesType describes one row per directory entry.
const entriesType = "list<struct entry<name: string, kind: enum kind<file, directory, symlink, other>, size: number, modified_at: number>>"

// kind ordinals come from the declared enum so the wire values always
// match the schema.
var (
	kindFile      uint32
	kindDirectory uint32
	kindSymlink   uint32
	kindOther     uint32
)

func init() {
	kinds := datatype.MustParse(entriesType).Elem.Fields[1].Type
	for name, dst := range map[string]*uint32{
		"file":      &kindFile,
		"directory": &kindDirectory,
		"symlink":   &kindSymlink,
		"other":     &kindOther,
	} {
		ord, ok := kinds.Variant(name)
		if !ok {
			panic("lsdir: enum variant " + name + " missing")
		}
		*dst = ord
	}
}

// Entry is the CBOR-encoded row published for each directory entry.
type Entry struct {
	Name       string `cbor:"name"`
	Kind       uint32 `cbor:"kind"`
	Size       int64  `cbor:"size"`
	ModifiedAt int64  `cbor:"modified_at"`
}

// Plugin lists directory contents as a streaming resource.
type Plugin struct {
	enforcer *capability.Enforcer
	metrics  *observability.Metrics
	pageSize int
}

// Option configures the plugin.
type Option func(*Plugin)

// WithEnforcer gates directory reads behind the fs.read.dir capability.
func WithEnforcer(e *capability.Enforcer) Option {
	return func(p *Plugin) {
		p.enforcer = e
	}
}

// WithMetrics records serviced load-more requests and lost output writes.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Plugin) {
		p.metrics = m
	}
}

// WithPageSize overrides the default page size.
func WithPageSize(n int) Option {
	return func(p *Plugin) {
		if n > 0 {
			p.pageSize = n
		}
	}
}

// New creates the plugin.
func New(opts ...Option) *Plugin {
	p := &Plugin{pageSize: defaultPageSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Schema describes the plugin's contract.
func (p *Plugin) Schema(_ context.Context) (schema.Schema, error) {
	return schema.Schema{
		Name:        Name,
		Description: "List files in a directory",
		Arguments: []schema.ArgumentSpec{
			{
				Name:            "directory",
				Description:     "The directory to list files in",
				DataType:        "path",
				SupportsUpdates: true,
			},
		},
		Outputs: []schema.OutputSpec{
			{
				Name:        "files",
				Description: "The files in the directory",
				DataType:    entriesType,
			},
		},
	}, nil
}

// Run publishes the directory listing until the host destroys the run's
// resources or closes the files request queue.
func (p *Plugin) Run(ctx context.Context, rc *engine.RunContext) (string, error) {
	errb := oops.In("lsdir")

	if p.enforcer != nil {
		if err := p.enforcer.Require(Name, capabilityRead); err != nil {
			return "", err
		}
	}

	in, ok := rc.Argument("directory")
	if !ok {
		return "", errb.New("directory argument not bound")
	}
	dir, ok := in.(*host.ValueInput)
	if !ok {
		return "", errb.New("directory argument is not a value input")
	}

	out, err := rc.AddListOutput("files", "The files in the directory", entriesType)
	if err != nil {
		return "", err
	}

	lst := &listing{out: out, pageSize: p.pageSize, metrics: p.metrics}

	path, present := dir.Get()
	if !present {
		return "", errb.New("directory argument has no value")
	}
	if err := lst.reload(string(path)); err != nil {
		return "", err
	}

	var wg sync.WaitGroup
	wg.Add(2)

	// Page server: each load-more request appends the next slice of rows.
	go func() {
		defer wg.Done()
		for {
			req, err := out.PollRequestBlocking(ctx)
			if err != nil {
				return
			}
			if more, ok := req.(stream.ListLoadMore); ok {
				lst.appendPage(int(more.Limit))
				p.metrics.RecordRequest("load_more", "ok")
			}
		}
	}()

	// Argument watcher: a new directory value restarts the listing.
	go func() {
		defer wg.Done()
		for {
			change, err := dir.PollChangeBlocking(ctx)
			if err != nil {
				return
			}
			if !change.Present {
				lst.clear()
				continue
			}
			if err := lst.reload(string(change.Value)); err != nil {
				slog.Warn("directory reload failed",
					"plugin", Name, "directory", string(change.Value), "error", err)
			}
		}
	}()

	wg.Wait()
	return "done", nil
}

// listing holds the rows read from the current directory and tracks how
// many have been published.
type listing struct {
	mu       sync.Mutex
	out      *host.ListOutput
	metrics  *observability.Metrics
	pageSize int
	rows     [][]byte
	offset   int
}

// reload reads the directory and publishes its first page.
func (l *listing) reload(path string) error {
	rows, err := readEntries(path)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = rows
	l.offset = 0
	if err := l.out.Clear(); err != nil {
		return err
	}
	l.appendLocked(l.pageSize)
	return nil
}

func (l *listing) appendPage(limit int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 {
		limit = l.pageSize
	}
	l.appendLocked(limit)
}

func (l *listing) appendLocked(limit int) {
	end := l.offset + limit
	if end > len(l.rows) {
		end = len(l.rows)
	}
	for _, row := range l.rows[l.offset:end] {
		if err := l.out.Add(row); err != nil {
			l.metrics.RecordOutputWriteFailure(Name)
			return
		}
	}
	l.offset = end
	_ = l.out.SetHasMoreRows(l.offset < len(l.rows))
}

func (l *listing) clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = nil
	l.offset = 0
	_ = l.out.Clear()
	_ = l.out.SetHasMoreRows(false)
}

// readEntries reads a directory and encodes one row per entry, sorted
// by name.
func readEntries(path string) ([][]byte, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, oops.In("lsdir").With("directory", path).Wrapf(err, "reading directory")
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	rows := make([][]byte, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			slog.Warn("skipping unreadable entry",
				"plugin", Name, "entry", entry.Name(), "error", err)
			continue
		}
		row, err := cbor.Marshal(Entry{
			Name:       entry.Name(),
			Kind:       entryKind(info.Mode()),
			Size:       info.Size(),
			ModifiedAt: info.ModTime().UnixMilli(),
		})
		if err != nil {
			return nil, oops.In("lsdir").With("entry", entry.Name()).Wrap(err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func entryKind(mode fs.FileMode) uint32 {
	switch {
	case mode.IsRegular():
		return kindFile
	case mode.IsDir():
		return kindDirectory
	case mode&fs.ModeSymlink != 0:
		return kindSymlink
	default:
		return kindOther
	}
}
