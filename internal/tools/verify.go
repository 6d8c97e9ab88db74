package tools

import (
	"context"
	"fmt"
	"math"
	"strings"

	"devkit/internal/catalog"
	"devkit/internal/runner"
)

// Verify runs the descriptor's functionality tests. It succeeds when the
// passing fraction reaches the policy threshold.
func (e *Engine) Verify(ctx context.Context, desc catalog.Descriptor, opts Options) Result {
	status := e.Detect(ctx, desc)
	res := Result{Status: &status}
	if !status.Installed {
		res.Outcome = failure(KindNotInstalled, "%s", status.Summary())
		return res
	}
	if len(desc.Tests) == 0 {
		res.Outcome = Skipped{Reason: "no tests defined"}
		return res
	}

	vars := e.vars(desc, opts)
	vars["exe"] = quoteArg(status.Path)

	passed := 0
	for _, tc := range desc.Tests {
		if ctx.Err() != nil {
			break
		}
		line := runner.Expand(tc.Command, vars)
		out, err := e.exec(ctx, e.shell(line), e.commandTimeout())
		output := out.Output()
		ok := err == nil && containsFold(output, tc.Expect)
		if ok {
			passed++
		}
		if opts.Detailed {
			res.Tests = append(res.Tests, TestDetail{
				Name:     tc.Label(),
				Command:  line,
				Expect:   tc.Expect,
				Passed:   ok,
				ExitCode: runner.ExitCode(out, err),
				Output:   truncate(output, 500),
			})
		}
	}

	total := len(desc.Tests)
	res.TestsPassed = passed
	res.TestsTotal = total
	threshold := e.passThreshold()
	if meetsThreshold(passed, total, threshold) {
		res.Outcome = Success{Message: fmt.Sprintf("%d/%d tests passed", passed, total)}
	} else {
		res.Outcome = failure(KindTestsFailed, "%d/%d tests passed, need %.0f%%", passed, total, threshold*100)
	}
	return res
}

// meetsThreshold compares passed/total against threshold, treating values
// within floating point error of the threshold as passing.
func meetsThreshold(passed, total int, threshold float64) bool {
	if total == 0 {
		return true
	}
	ratio := float64(passed) / float64(total)
	return ratio >= threshold || math.Abs(ratio-threshold) < 1e-9
}

func containsFold(output, expect string) bool {
	expect = strings.TrimSpace(expect)
	if expect == "" {
		return true
	}
	return strings.Contains(strings.ToLower(output), strings.ToLower(expect))
}
