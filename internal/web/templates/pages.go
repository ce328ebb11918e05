package templates

import (
	"context"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/rollup/internal/core"
)

// UploadForm holds the defaults shown on the upload page.
type UploadForm struct {
	Sheet    string
	SkipRows int
	MaxSkip  int
	Error    *core.UserMessage
}

// UploadPage is the start page: a workbook file plus sheet and skip settings.
func UploadPage(form UploadForm) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		if form.Error != nil {
			h.component(ctx, ErrorAlert(form.Error.Message, form.Error.Action, form.Error.Code))
		}
		h.raw(`<section><h1>Sum a column by group</h1>`)
		h.raw(`<p class="muted">Upload an Excel workbook. Columns are classified automatically; you choose what to group by and what to total.</p>`)
		h.raw(`<form method="post" action="/inspect" enctype="multipart/form-data">`)
		h.raw(`<label for="file">Workbook (.xlsx)</label><input id="file" name="file" type="file" accept=".xlsx" required>`)
		h.raw(`<label for="sheet">Sheet name</label><input id="sheet" name="sheet" type="text" value="`)
		h.text(form.Sheet)
		h.raw(`">`)
		h.raw(`<label for="skip_rows">Header rows to skip</label>`)
		h.rawf(`<input id="skip_rows" name="skip_rows" type="number" min="0" max="%d" value="%d">`, form.MaxSkip, form.SkipRows)
		h.raw(`<p><button type="submit">Inspect columns</button></p></form></section>`)
		return h.err
	})
	return Layout("Upload", body)
}

// ColumnsView is the column classification page state.
type ColumnsView struct {
	Inspection     *core.Inspection
	GroupBy        string
	Value          string
	Include        map[string]bool
	Exclude        map[string]bool
	IncludeCleaned bool
	Error          *core.UserMessage
}

// ColumnsPage shows detected classes, overrides and the group/value selection.
func ColumnsPage(v ColumnsView) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		insp := v.Inspection
		if v.Error != nil {
			h.component(ctx, ErrorAlert(v.Error.Message, v.Error.Action, v.Error.Code))
		}

		h.raw(`<section><h1>`)
		h.text(insp.FileName)
		h.raw(`</h1><p class="muted">Sheet `)
		h.text(insp.Sheet)
		h.rawf(` &middot; %d rows &middot; %d columns</p></section>`, insp.Rows, len(insp.Columns))

		h.rawf(`<form method="post" action="/generate/%s">`, templ.EscapeString(insp.DatasetID))

		h.raw(`<section><h2>Columns</h2><table><thead><tr><th>Column</th><th>Detected</th><th>Samples</th><th>Force numeric</th><th>Force text</th></tr></thead><tbody>`)
		for _, p := range insp.Profiles {
			h.raw(`<tr><td>`)
			h.text(p.Name)
			h.raw(`</td><td>`)
			h.text(p.Detected.Label())
			h.raw(`</td><td class="muted">`)
			h.text(strings.Join(p.Samples, ", "))
			h.raw(`</td><td>`)
			checkbox(h, "include", p.Name, v.Include[p.Name])
			h.raw(`</td><td>`)
			checkbox(h, "exclude", p.Name, v.Exclude[p.Name])
			h.raw(`</td></tr>`)
		}
		h.raw(`</tbody></table></section>`)

		h.raw(`<section><h2>Roll-up</h2>`)
		h.raw(`<label for="group_by">Group by (text)</label>`)
		selectBox(h, "group_by", insp.Columns, v.GroupBy)
		h.raw(`<label for="value">Value to total (numeric)</label>`)
		selectBox(h, "value", insp.Columns, v.Value)
		h.raw(`<label><input type="checkbox" name="include_cleaned" value="true"`)
		if v.IncludeCleaned {
			h.raw(` checked`)
		}
		h.raw(`> Add the cleaned data sheet to the download</label>`)
		h.raw(`<p><button type="submit">Generate totals</button></p></section></form>`)

		if len(insp.Preview) > 0 {
			h.raw(`<section><h2>Preview</h2><table><thead><tr>`)
			for _, c := range insp.Columns {
				h.raw(`<th>`)
				h.text(c)
				h.raw(`</th>`)
			}
			h.raw(`</tr></thead><tbody>`)
			for _, row := range insp.Preview {
				h.raw(`<tr>`)
				for _, cell := range row {
					h.raw(`<td>`)
					h.text(cell)
					h.raw(`</td>`)
				}
				h.raw(`</tr>`)
			}
			h.raw(`</tbody></table></section>`)
		}
		return h.err
	})
	return Layout("Columns", body)
}

func checkbox(h *htmlWriter, name, value string, checked bool) {
	h.rawf(`<input type="checkbox" name="%s" value="%s"`, name, templ.EscapeString(value))
	if checked {
		h.raw(` checked`)
	}
	h.raw(`>`)
}

func selectBox(h *htmlWriter, name string, options []string, selected string) {
	h.rawf(`<select id="%s" name="%s">`, name, name)
	for _, o := range options {
		h.raw(`<option value="`)
		h.text(o)
		h.raw(`"`)
		if o == selected {
			h.raw(` selected`)
		}
		h.raw(`>`)
		h.text(o)
		h.raw(`</option>`)
	}
	h.raw(`</select>`)
}

// ResultView is the result page state.
type ResultView struct {
	Inspection *core.Inspection
	Run        *core.RunResult
}

// ResultPage shows the ranked totals and the download link.
func ResultPage(v ResultView) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		run := v.Run

		if len(run.UnknownOverrides) > 0 {
			h.raw(`<div class="alert alert-warn">Ignored overrides for unknown columns: `)
			h.text(strings.Join(run.UnknownOverrides, ", "))
			h.raw(`</div>`)
		}

		h.raw(`<section><h1>Total `)
		h.text(run.Result.ValueColumn)
		h.raw(` by `)
		h.text(run.Result.GroupColumn)
		h.raw(`</h1><p class="muted">Whitespace trimmed, blanks filled with &quot;Empty&quot; and category names standardized.</p>`)
		h.raw(`<table><thead><tr><th>`)
		h.text(run.Result.GroupColumn)
		h.raw(`</th><th>Total `)
		h.text(run.Result.ValueColumn)
		h.raw(`</th></tr></thead><tbody>`)
		for _, g := range run.Ranked {
			h.raw(`<tr><td>`)
			h.text(g.Key)
			h.raw(`</td><td class="num">`)
			h.text(FormatTotal(g.Total))
			h.raw(`</td></tr>`)
		}
		h.raw(`</tbody><tfoot><tr><th>All groups</th><th class="num">`)
		h.text(FormatTotal(run.GrandTotal))
		h.raw(`</th></tr></tfoot></table></section>`)

		h.raw(`<section><a href="/download/`)
		h.text(run.RunID)
		h.raw(`">Download `)
		h.text(run.FileName)
		h.raw(`</a>`)
		h.raw(` &middot; <a href="/">Upload another workbook</a>`)
		h.raw(`</section>`)
		return h.err
	})
	return Layout("Result", body)
}

// FormatTotal renders a total with thousands separators; whole numbers have
// no decimals, others two.
func FormatTotal(f float64) string {
	prec := 2
	if f == math.Trunc(f) {
		prec = 0
	}
	s := strconv.FormatFloat(math.Abs(f), 'f', prec, 64)
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	if f < 0 {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteString(frac)
	return b.String()
}
