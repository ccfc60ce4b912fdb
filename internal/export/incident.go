// Package export writes incident memories out as markdown reports when a
// workflow completes. Export failures are reported to the caller but must
// never block workflow completion.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/mtessler/coxswain/internal/config"
	"github.com/mtessler/coxswain/internal/ctxutil"
	"github.com/mtessler/coxswain/internal/errors"
	"github.com/mtessler/coxswain/internal/store"
)

// Summary reports what an export run produced.
type Summary struct {
	TotalIncidents int            `yaml:"total_incidents" json:"total_incidents"`
	OutputDir      string         `yaml:"output_dir" json:"output_dir"`
	IncidentFiles  []string       `yaml:"incident_files" json:"incident_files"`
	ByStatus       map[string]int `yaml:"by_status" json:"by_status"`
}

// incident is one parsed incident memory.
type incident struct {
	ID        string `yaml:"id"`
	Title     string `yaml:"title"`
	Symptom   string `yaml:"symptom"`
	Attempted string `yaml:"attempted"`
	Status    string `yaml:"status"`
	Verify    string `yaml:"verify"`
	AgentID   string `yaml:"agent_id"`
	OpenedAt  string `yaml:"opened_at"`
	raw       string
}

// Exporter writes incident reports for a workflow.
type Exporter struct {
	store  *store.Store
	cfg    *config.Config
	logger zerolog.Logger
}

// NewExporter creates an incident exporter.
func NewExporter(s *store.Store, cfg *config.Config, logger zerolog.Logger) *Exporter {
	return &Exporter{store: s, cfg: cfg, logger: logger.With().Str("component", "export").Logger()}
}

// Export writes one markdown report per incident memory recorded against the
// workflow's agents, plus an index README, a timeline, and a machine-readable
// summary.yaml. Returns the summary of what was written.
func (e *Exporter) Export(ctx context.Context, workflowID string) (*Summary, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	if workflowID == "" {
		return nil, fmt.Errorf("%w: workflow id", errors.ErrEmptyValue)
	}

	memories, err := e.store.Q().ListIncidentMemories(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("query incident memories: %w", err)
	}

	baseDir, err := e.cfg.ExportOutputDir()
	if err != nil {
		return nil, fmt.Errorf("resolve export dir: %w", err)
	}
	outDir := filepath.Join(baseDir, workflowID)
	incidentsDir := filepath.Join(outDir, "incidents")
	if err = os.MkdirAll(incidentsDir, 0o750); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	incidents := make([]incident, 0, len(memories))
	for i, m := range memories {
		inc := parseIncident(m.Content)
		inc.ID = fmt.Sprintf("INC-%04d", i+1)
		inc.AgentID = m.AgentID
		inc.OpenedAt = m.CreatedAt.UTC().Format("2006-01-02 15:04 UTC")
		incidents = append(incidents, inc)
	}

	summary := &Summary{
		TotalIncidents: len(incidents),
		OutputDir:      outDir,
		ByStatus:       map[string]int{},
	}
	for _, inc := range incidents {
		name := inc.ID + "-" + slugify(inc.Title) + ".md"
		if err = os.WriteFile(filepath.Join(incidentsDir, name), []byte(inc.render()), 0o600); err != nil {
			return nil, fmt.Errorf("write incident report: %w", err)
		}
		summary.IncidentFiles = append(summary.IncidentFiles, name)
		summary.ByStatus[inc.Status]++
	}

	if err = os.WriteFile(filepath.Join(outDir, "timeline.md"), renderTimeline(incidents), 0o600); err != nil {
		return nil, fmt.Errorf("write timeline: %w", err)
	}
	if err = os.WriteFile(filepath.Join(outDir, "README.md"), renderIndex(summary), 0o600); err != nil {
		return nil, fmt.Errorf("write index: %w", err)
	}

	raw, err := yaml.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	if err = os.WriteFile(filepath.Join(outDir, "summary.yaml"), raw, 0o600); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}

	e.logger.Info().Str("workflow_id", workflowID).Int("incidents", len(incidents)).
		Str("dir", outDir).Msg("incident export complete")
	return summary, nil
}

// parseIncident splits structured incident content of the form
// "INCIDENT: title | symptom: ... | attempted: ... | status: ... | verify: ...".
// Unstructured content becomes the title and symptom verbatim.
func parseIncident(content string) incident {
	inc := incident{Title: "Unknown Incident", Status: "OPEN", raw: content}

	if !strings.HasPrefix(content, "INCIDENT:") {
		inc.Title = content
		if len(content) > 50 {
			inc.Title = content[:50] + "..."
		}
		inc.Symptom = content
		return inc
	}

	for _, part := range strings.Split(content, "|") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "INCIDENT:"):
			inc.Title = strings.TrimSpace(strings.TrimPrefix(part, "INCIDENT:"))
		case strings.HasPrefix(part, "symptom:"):
			inc.Symptom = strings.TrimSpace(strings.TrimPrefix(part, "symptom:"))
		case strings.HasPrefix(part, "attempted:"):
			inc.Attempted = strings.TrimSpace(strings.TrimPrefix(part, "attempted:"))
		case strings.HasPrefix(part, "status:"):
			inc.Status = strings.TrimSpace(strings.TrimPrefix(part, "status:"))
		case strings.HasPrefix(part, "verify:"):
			inc.Verify = strings.TrimSpace(strings.TrimPrefix(part, "verify:"))
		}
	}
	return inc
}

var slugRegex = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(title string) string {
	slug := strings.Trim(slugRegex.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if len(slug) > 40 {
		slug = strings.Trim(slug[:40], "-")
	}
	if slug == "" {
		slug = "incident"
	}
	return slug
}

func (inc incident) render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "---\nid: %s\nstatus: %s\nopened: %s\nagent_id: %s\n---\n\n", inc.ID, inc.Status, inc.OpenedAt, inc.AgentID)
	fmt.Fprintf(&b, "# Summary\n\n%s\n\n", inc.Title)
	fmt.Fprintf(&b, "# Symptoms\n\n%s\n\n", orNone(inc.Symptom))
	fmt.Fprintf(&b, "# Resolution Attempted\n\n%s\n\n", orNone(inc.Attempted))
	fmt.Fprintf(&b, "# Verification\n\n%s\n\n", orNone(inc.Verify))
	fmt.Fprintf(&b, "# Raw Memory Content\n\n```\n%s\n```\n", inc.raw)
	return b.String()
}

func renderTimeline(incidents []incident) []byte {
	var b strings.Builder
	b.WriteString("# Incident Timeline\n\n")
	b.WriteString("| Opened | ID | Title | Status | Agent |\n")
	b.WriteString("|--------|----|-------|--------|-------|\n")
	for _, inc := range incidents {
		title := inc.Title
		if len(title) > 40 {
			title = title[:40]
		}
		agent := inc.AgentID
		if len(agent) > 8 {
			agent = agent[:8]
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", inc.OpenedAt, inc.ID, title, inc.Status, agent)
	}
	return []byte(b.String())
}

func renderIndex(summary *Summary) []byte {
	var b strings.Builder
	b.WriteString("# Agent Incidents\n\n")
	fmt.Fprintf(&b, "**Total Incidents**: %d\n\n", summary.TotalIncidents)

	b.WriteString("## By Status\n\n")
	statuses := make([]string, 0, len(summary.ByStatus))
	for s := range summary.ByStatus {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		fmt.Fprintf(&b, "- %s: %d\n", s, summary.ByStatus[s])
	}

	b.WriteString("\n## Incident Index\n\n")
	for _, f := range summary.IncidentFiles {
		fmt.Fprintf(&b, "- [incidents/%s](incidents/%s)\n", f, f)
	}
	b.WriteString("\nSee [timeline.md](timeline.md) for the chronological view.\n")
	return []byte(b.String())
}

func orNone(s string) string {
	if s == "" {
		return "None recorded"
	}
	return s
}
