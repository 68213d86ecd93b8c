// Command validate checks a scenario model input CSV against the baseline it
// was built from: the same regines in the same order, every column outside
// the replaced groups unchanged, and every replaced cell a non-negative
// number.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -baseline data/scenarios/oslomod_teotil3_input_data_baseline_2019.csv \
//	  -scenario "data/scenarios/oslomod_teotil3_input_data_tiltak a_2019.csv" \
//	  -replaced large-wastewater_,agriculture_,agriculture-background_
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/oslomod/teotil3-scenarios/internal/modelinput"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	baselinePath := flag.String("baseline", "", "baseline model input CSV")
	scenarioPath := flag.String("scenario", "", "scenario model input CSV")
	replaced := flag.String("replaced", modelinput.WastewaterPrefix, "comma-separated prefixes of replaced columns")
	flag.Parse()

	if *baselinePath == "" || *scenarioPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*baselinePath, *scenarioPath, splitPrefixes(*replaced)); code != 0 {
		os.Exit(code)
	}
}

func run(baselinePath, scenarioPath string, prefixes []string) int {
	fmt.Println("=== Model Input Validation ===")
	fmt.Println()

	base, err := modelinput.ReadFile(baselinePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load baseline: %v\n", err)
		return 1
	}
	scen, err := modelinput.ReadFile(scenarioPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load scenario: %v\n", err)
		return 1
	}

	phases := validate(base, scen, prefixes)

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Regines: %d baseline, %d scenario; columns: %d baseline, %d scenario\n",
		len(base.Records), len(scen.Records), len(base.Columns), len(scen.Columns))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func validate(base, scen *modelinput.Table, prefixes []string) []*phase {
	return []*phase{
		validateRegines(base, scen),
		validateColumns(base, scen),
		validateUntouched(base, scen, prefixes),
		validateReplaced(scen, prefixes),
	}
}

func splitPrefixes(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isReplaced(col string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(col, p) {
			return true
		}
	}
	return false
}

// ── Phases ──

func validateRegines(base, scen *modelinput.Table) *phase {
	p := &phase{name: "Regine parity"}
	bk, sk := base.Keys(), scen.Keys()
	if len(bk) != len(sk) {
		p.errorf("baseline has %d regines, scenario has %d", len(bk), len(sk))
		return p
	}
	for i := range bk {
		if bk[i] != sk[i] {
			p.errorf("row %d: baseline regine %q, scenario regine %q", i+2, bk[i], sk[i])
		}
	}
	return p
}

func validateColumns(base, scen *modelinput.Table) *phase {
	p := &phase{name: "Baseline columns present"}
	for _, c := range base.Columns {
		if scen.ColumnIndex(c) < 0 {
			p.errorf("column %q missing from scenario", c)
		}
	}
	return p
}

func validateUntouched(base, scen *modelinput.Table, prefixes []string) *phase {
	p := &phase{name: "Untouched columns unchanged"}
	if len(base.Records) != len(scen.Records) {
		p.errorf("row counts differ, cells not compared")
		return p
	}
	for bi, c := range base.Columns {
		if isReplaced(c, prefixes) {
			continue
		}
		si := scen.ColumnIndex(c)
		if si < 0 {
			continue
		}
		for r := range base.Records {
			if b, s := base.Records[r][bi], scen.Records[r][si]; b != s {
				p.errorf("row %d, %s: baseline %q, scenario %q", r+2, c, b, s)
			}
		}
	}
	return p
}

func validateReplaced(scen *modelinput.Table, prefixes []string) *phase {
	p := &phase{name: "Replaced cells non-negative"}
	for ci, c := range scen.Columns {
		if !isReplaced(c, prefixes) {
			continue
		}
		for r, rec := range scen.Records {
			cell := rec[ci]
			if cell == "" {
				p.errorf("row %d, %s: empty", r+2, c)
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			switch {
			case err != nil:
				p.errorf("row %d, %s: %q is not a number", r+2, c, cell)
			case v < 0:
				p.errorf("row %d, %s: negative value %v", r+2, c, v)
			}
		}
	}
	return p
}
