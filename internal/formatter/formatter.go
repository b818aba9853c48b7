package formatter

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cli/go-gh/v2/pkg/tableprinter"
	"github.com/fatih/color"

	"github.com/kyleking/catalog-chat/internal/catalog"
	"github.com/kyleking/catalog-chat/internal/conversation"
	"github.com/kyleking/catalog-chat/internal/storage"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatLong  OutputFormat = "long"
	FormatShort OutputFormat = "short"
)

const (
	defaultWidth   = 120
	maxPreviewRows = 20
	maxCellLen     = 40
)

// Formatter renders conversation replies and stored records for the terminal
type Formatter struct {
	isTTY bool
	width int

	prompt  *color.Color
	failure *color.Color
	heading *color.Color
}

// NewFormatter creates a formatter. Colors and table headers are only used
// when isTTY is set; a non-positive width falls back to 120 columns.
func NewFormatter(isTTY bool, width int) *Formatter {
	if width <= 0 {
		width = defaultWidth
	}

	f := &Formatter{
		isTTY:   isTTY,
		width:   width,
		prompt:  color.New(color.FgCyan),
		failure: color.New(color.FgRed),
		heading: color.New(color.Bold),
	}

	if !isTTY {
		f.prompt.DisableColor()
		f.failure.DisableColor()
		f.heading.DisableColor()
	}

	return f
}

// FormatReply renders one assistant reply with its tables and prompts
func (f *Formatter) FormatReply(r conversation.Reply) string {
	var sections []string

	text := strings.TrimRight(r.Text, "\n")

	switch r.Kind {
	case conversation.KindError:
		sections = append(sections, f.failure.Sprint(text))
	case conversation.KindPreview:
		sections = append(sections, f.heading.Sprint(text))
	default:
		sections = append(sections, text)
	}

	if len(r.Suggestions) > 0 {
		sections = append(sections, f.FormatSuggestions(r.Suggestions, FormatLong))
	}

	if len(r.Rows) > 0 {
		sections = append(sections, f.FormatRows(r.Rows))
	}

	if len(r.Prompts) > 0 {
		sections = append(sections, f.FormatPrompts(r.Prompts))
	}

	return strings.Join(sections, "\n\n")
}

// FormatSuggestions renders suggestions as a numbered table. The long form
// adds the catalog path and the match explanation.
func (f *Formatter) FormatSuggestions(suggestions []catalog.Suggestion, format OutputFormat) string {
	var buf bytes.Buffer

	tp := tableprinter.New(&buf, f.isTTY, f.width)

	header := []string{"#", "ID", "TITLE", "YEAR", "SOURCE"}
	if format == FormatLong {
		header = append(header, "PATH", "REASON")
	}

	tp.AddHeader(header)

	for i, s := range suggestions {
		tp.AddField(strconv.Itoa(i + 1))
		tp.AddField(s.ID)
		tp.AddField(s.Title, tableprinter.WithTruncate(nil))
		tp.AddField(f.formatYear(s.Year))
		tp.AddField(orDash(s.Source))

		if format == FormatLong {
			tp.AddField(orDash(s.Path), tableprinter.WithTruncate(nil))
			tp.AddField(orDash(s.Reason))
		}

		tp.EndRow()
	}

	_ = tp.Render()

	return strings.TrimRight(buf.String(), "\n")
}

// FormatRows renders a result preview. Columns are sorted by name and at
// most 20 rows are shown.
func (f *Formatter) FormatRows(rows []map[string]interface{}) string {
	columns := rowColumns(rows)
	if len(columns) == 0 {
		return ""
	}

	var buf bytes.Buffer

	tp := tableprinter.New(&buf, f.isTTY, f.width)
	tp.AddHeader(columns)

	shown := rows
	if len(shown) > maxPreviewRows {
		shown = shown[:maxPreviewRows]
	}

	for _, row := range shown {
		for _, col := range columns {
			tp.AddField(formatCell(row[col]))
		}

		tp.EndRow()
	}

	_ = tp.Render()

	out := strings.TrimRight(buf.String(), "\n")
	if rest := len(rows) - len(shown); rest > 0 {
		out += fmt.Sprintf("\n... (+%d linhas)", rest)
	}

	return out
}

// FormatPrompts renders the suggested inputs on one line
func (f *Formatter) FormatPrompts(prompts []string) string {
	parts := make([]string, len(prompts))
	for i, p := range prompts {
		parts[i] = f.prompt.Sprintf("[%s]", p)
	}

	return "Sugestões: " + strings.Join(parts, " ")
}

// FormatExecution renders one stored execution
func (f *Formatter) FormatExecution(rec storage.ExecutionRecord, format OutputFormat) string {
	status := rec.Status
	if !rec.Succeeded() {
		status = f.failure.Sprint(rec.Status)
	}

	line := fmt.Sprintf("%s  %s  via %s  %s  %d rows  %.0fms  %s",
		rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.TableID, rec.Strategy, status,
		rec.RowCount, rec.DurationMs, f.humanizeAge(rec.CreatedAt))

	if format != FormatLong {
		return line
	}

	lines := []string{line, "ID: " + rec.ID}

	if rec.ConversationID != "" {
		lines = append(lines, "Conversation: "+rec.ConversationID)
	}

	if rec.Question != "" {
		lines = append(lines, "Question: "+rec.Question)
	}

	if rec.Error != "" {
		lines = append(lines, "Error: "+rec.Error)
	}

	if rec.AnswerText != "" {
		lines = append(lines, "Answer: "+rec.AnswerText)
	}

	lines = append(lines, "Payload: "+rec.Payload)

	return strings.Join(lines, "\n")
}

// FormatStats renders execution log statistics
func (f *Formatter) FormatStats(stats *storage.Stats) string {
	lines := []string{
		f.heading.Sprint("Execution History"),
		fmt.Sprintf("Executions: %d (%d failed)", stats.TotalExecutions, stats.Failed),
		fmt.Sprintf("Average duration: %.0fms", stats.AvgDurationMs),
		"Last execution: " + f.humanizeAge(stats.LastExecution),
		fmt.Sprintf("Database size: %.2f MB", stats.DatabaseSizeMB),
	}

	if len(stats.TableBreakdown) > 0 {
		tables := make([]string, 0, len(stats.TableBreakdown))
		for table := range stats.TableBreakdown {
			tables = append(tables, table)
		}

		sort.Slice(tables, func(i, j int) bool {
			ci, cj := stats.TableBreakdown[tables[i]], stats.TableBreakdown[tables[j]]
			if ci != cj {
				return ci > cj
			}

			return tables[i] < tables[j]
		})

		lines = append(lines, "", "By table:")
		for _, table := range tables {
			lines = append(lines, fmt.Sprintf("  %s: %d", table, stats.TableBreakdown[table]))
		}
	}

	return strings.Join(lines, "\n")
}

func (f *Formatter) formatYear(year int) string {
	if year <= 0 {
		return "-"
	}

	return strconv.Itoa(year)
}

// humanizeAge converts a time to a human-readable age string
func (f *Formatter) humanizeAge(t time.Time) string {
	if t.IsZero() {
		return "?"
	}

	days := int(time.Since(t).Hours() / 24)

	if days < 1 {
		return "today"
	} else if days == 1 {
		return "1 day ago"
	} else if days < 30 {
		return fmt.Sprintf("%d days ago", days)
	} else if days < 365 {
		months := days / 30
		if months == 1 {
			return "1 month ago"
		}

		return fmt.Sprintf("%d months ago", months)
	}

	years := days / 365
	if years == 1 {
		return "1 year ago"
	}

	return fmt.Sprintf("%d years ago", years)
}

func rowColumns(rows []map[string]interface{}) []string {
	seen := make(map[string]bool)

	var columns []string

	for _, row := range rows {
		for col := range row {
			if !seen[col] {
				seen[col] = true
				columns = append(columns, col)
			}
		}
	}

	sort.Strings(columns)

	return columns
}

// formatCell renders a JSON-decoded value; integral floats print without a
// fraction and long text is cut
func formatCell(v interface{}) string {
	var s string

	switch val := v.(type) {
	case nil:
		s = "NULL"
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		s = val
	case bool:
		s = strconv.FormatBool(val)
	default:
		s = fmt.Sprint(val)
	}

	if r := []rune(s); len(r) > maxCellLen {
		s = string(r[:maxCellLen-3]) + "..."
	}

	return s
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}

	return s
}
