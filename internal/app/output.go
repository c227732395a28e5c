package app

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/tidwall/sjson"
	glua "github.com/yuin/gopher-lua"

	"github.com/dshills/arraytrie/internal/config"
	"github.com/dshills/arraytrie/internal/engine/history"
	"github.com/dshills/arraytrie/internal/plugin/lua"
)

// maxTextElements caps how many elements text output shows.
const maxTextElements = 32

// Printer renders results as text or JSON lines.
type Printer struct {
	w      io.Writer
	format string

	header *color.Color
	label  *color.Color
	muted  *color.Color
	fail   *color.Color
}

// NewPrinter creates a printer. format is config.FormatText or
// config.FormatJSON; useColor only affects text output.
func NewPrinter(w io.Writer, format string, useColor bool) *Printer {
	p := &Printer{
		w:      w,
		format: format,
		header: color.New(color.FgCyan, color.Bold),
		label:  color.New(color.FgGreen),
		muted:  color.New(color.Faint),
		fail:   color.New(color.FgRed, color.Bold),
	}
	if !useColor || format == config.FormatJSON {
		for _, c := range []*color.Color{p.header, p.label, p.muted, p.fail} {
			c.DisableColor()
		}
	}
	return p
}

// JSON reports whether the printer emits JSON lines.
func (p *Printer) JSON() bool {
	return p.format == config.FormatJSON
}

// Version prints a committed vector with its metadata.
func (p *Printer) Version(ver history.Version[glua.LValue]) error {
	info := ver.Info()
	v := ver.Vector
	digest := fmt.Sprintf("%016x", info.Digest)

	if p.JSON() {
		elems := lua.ToGoValues(v)
		doc, err := p.object(
			"version", info.ID.String(),
			"label", info.Label,
			"timestamp", info.Timestamp.Format(time.RFC3339Nano),
			"len", info.Len,
			"height", v.Height(),
			"digest", digest,
			"elements", elems,
		)
		if err != nil {
			return err
		}
		return p.line(doc)
	}

	_, err := fmt.Fprintf(p.w, "%s %s  %s\n%s\n",
		p.header.Sprint("version"),
		p.muted.Sprint(info.ID.String()[:8]),
		p.label.Sprint(info.Label),
		p.muted.Sprintf("len=%s height=%d digest=%s", humanize.Comma(int64(info.Len)), v.Height(), digest),
	)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.w, formatElements(v, maxTextElements))
	return err
}

// Values prints plain script results that are not vectors.
func (p *Printer) Values(values []any) error {
	if p.JSON() {
		if values == nil {
			values = []any{}
		}
		doc, err := p.object("values", values)
		if err != nil {
			return err
		}
		return p.line(doc)
	}

	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	_, err := fmt.Fprintln(p.w, strings.Join(parts, "\t"))
	return err
}

// Failure prints a script error without aborting a watch session.
func (p *Printer) Failure(label string, err error) error {
	if p.JSON() {
		doc, jerr := p.object("label", label, "error", err.Error())
		if jerr != nil {
			return jerr
		}
		return p.line(doc)
	}
	_, werr := fmt.Fprintf(p.w, "%s %s: %v\n", p.fail.Sprint("error"), label, err)
	return werr
}

// History prints the undo stack, oldest first, then the current version and
// the redo stack from the next redo step onwards. redo is in the order
// returned by RedoInfo.
func (p *Printer) History(undo []history.VersionInfo, current history.VersionInfo, redo []history.VersionInfo) error {
	entries := append(append([]history.VersionInfo(nil), undo...), current)
	cur := len(entries) - 1
	for i := len(redo) - 1; i >= 0; i-- {
		entries = append(entries, redo[i])
	}

	if p.JSON() {
		for i, info := range entries {
			doc, err := p.object(
				"version", info.ID.String(),
				"label", info.Label,
				"timestamp", info.Timestamp.Format(time.RFC3339Nano),
				"len", info.Len,
				"digest", fmt.Sprintf("%016x", info.Digest),
				"current", i == cur,
			)
			if err != nil {
				return err
			}
			if err := p.line(doc); err != nil {
				return err
			}
		}
		return nil
	}

	for i, info := range entries {
		marker := " "
		if i == cur {
			marker = p.header.Sprint("*")
		}
		_, err := fmt.Fprintf(p.w, "%s %s  %-24s %s  %s\n",
			marker,
			p.muted.Sprint(info.ID.String()[:8]),
			p.label.Sprint(info.Label),
			humanize.Comma(int64(info.Len)),
			p.muted.Sprint(humanize.Time(info.Timestamp)),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// Bench prints benchmark phases.
func (p *Printer) Bench(results []BenchResult) error {
	for _, r := range results {
		if p.JSON() {
			doc, err := p.object(
				"phase", r.Phase,
				"ops", r.Ops,
				"elapsed_ns", r.Elapsed.Nanoseconds(),
				"ns_per_op", r.NsPerOp(),
				"alloc_bytes", r.AllocBytes,
			)
			if err != nil {
				return err
			}
			if err := p.line(doc); err != nil {
				return err
			}
			continue
		}

		_, err := fmt.Fprintf(p.w, "%-8s %12s ops  %10s  %8s ns/op  %10s ops/s  %10s\n",
			p.header.Sprint(r.Phase),
			humanize.Comma(int64(r.Ops)),
			r.Elapsed.Round(time.Microsecond),
			strconv.FormatFloat(r.NsPerOp(), 'f', 1, 64),
			humanize.SIWithDigits(r.OpsPerSec(), 2, ""),
			humanize.Bytes(r.AllocBytes),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// Summary prints session metrics.
func (p *Printer) Summary(s MetricsSnapshot) error {
	if p.JSON() {
		doc, err := p.object(
			"runs", s.RunCount,
			"failures", s.RunFailures,
			"reloads", s.Reloads,
			"ops", s.Ops,
			"avg_run_ns", s.AvgRunTimeNs,
			"max_run_ns", s.MaxRunTimeNs,
		)
		if err != nil {
			return err
		}
		return p.line(doc)
	}

	_, err := fmt.Fprintln(p.w, p.muted.Sprintf("%s runs, %s failed, %s reloads, %s vector ops, avg %s",
		humanize.Comma(int64(s.RunCount)),
		humanize.Comma(int64(s.RunFailures)),
		humanize.Comma(int64(s.Reloads)),
		humanize.Comma(s.Ops),
		time.Duration(s.AvgRunTimeNs).Round(time.Microsecond),
	))
	return err
}

// object builds a JSON object from alternating keys and values, keeping
// the keys in the order given.
func (p *Printer) object(kv ...any) (string, error) {
	doc := "{}"
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			return "", fmt.Errorf("json key %v is not a string", kv[i])
		}
		var err error
		doc, err = sjson.Set(doc, key, kv[i+1])
		if err != nil {
			return "", fmt.Errorf("encode %s: %w", key, err)
		}
	}
	return doc, nil
}

func (p *Printer) line(doc string) error {
	_, err := fmt.Fprintln(p.w, doc)
	return err
}

// formatElements renders at most limit elements as "[a b c ...]", noting
// how many were left out.
func formatElements(v lua.Vec, limit int) string {
	var b strings.Builder
	b.WriteByte('[')
	shown := 0
	for i, x := range v.All() {
		if i == limit {
			break
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprint(&b, lua.ToGoValue(x))
		shown++
	}
	if rest := v.Len() - shown; rest > 0 {
		fmt.Fprintf(&b, " ... (%s more)", humanize.Comma(int64(rest)))
	}
	b.WriteByte(']')
	return b.String()
}
