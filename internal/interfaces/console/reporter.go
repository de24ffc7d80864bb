package console

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
)

// Reporter печатает ход цикла для оператора (реализует port.ProgressReporter)
type Reporter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewReporter создает reporter. nil означает stdout.
func NewReporter(out io.Writer) *Reporter {
	if out == nil {
		out = os.Stdout
	}
	return &Reporter{out: out}
}

func (r *Reporter) CycleStarted() {
	r.println("🚀 Starting automatic optimization cycle...")
}

func (r *Reporter) CollectingMetrics() {
	r.println("📊 Collecting metrics...")
}

func (r *Reporter) AnalyzingMetrics() {
	r.println("🤖 Analyzing with AI...")
}

func (r *Reporter) RecommendationReady(rec *entity.Recommendation) {
	if rec == nil {
		return
	}

	summary := rec.AnalysisSummary
	if summary == "" {
		summary = "N/A"
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "📋 Optimization recommendations:")
	fmt.Fprintf(r.out, "Summary: %s\n", summary)
	for _, action := range rec.PriorityActions {
		fmt.Fprintf(r.out, "  • %s (Impact: %s)\n", action.Action, action.Impact)
		if action.EstimatedSavings != "" {
			fmt.Fprintf(r.out, "    💰 Estimated savings: %s\n", action.EstimatedSavings)
		}
	}

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "🔧 Applying optimizations...")
}

func (r *Reporter) RecommendationFailed(err error) {
	r.printf("❌ Analysis error: %v\n", err)
}

func (r *Reporter) ApplyingAction(action entity.PriorityAction) {
	r.printf("🔧 Applying: %s\n", action.Action)
}

// ApplyFinished ничего не печатает: итоги выводятся в CycleFinished
func (r *Reporter) ApplyFinished(*entity.ApplyReport) {}

func (r *Reporter) ResultSaved(location string) {
	r.printf("\n📄 Results saved to: %s\n", location)
}

func (r *Reporter) CycleFinished(result *entity.CycleResult) {
	if result == nil || result.Results == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "✅ Optimization completed:")
	fmt.Fprintf(r.out, "  • Changes applied: %d\n", len(result.Results.AppliedChanges))
	fmt.Fprintf(r.out, "  • Changes skipped: %d\n", len(result.Results.SkippedChanges))
	fmt.Fprintf(r.out, "  • Errors: %d\n", len(result.Results.Errors))
}

func (r *Reporter) println(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, line)
}

func (r *Reporter) printf(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}
