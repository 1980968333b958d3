package core

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

// StepStatus represents the status of a startup validation step.
type StepStatus int

const (
	StepPassed StepStatus = iota
	StepFailed
	StepWarning
)

// ValidationStep represents a single startup check with its outcome.
type ValidationStep struct {
	Name    string
	Status  StepStatus
	Message string
}

// ValidationResult represents the complete outcome of startup validation.
type ValidationResult struct {
	Steps    []ValidationStep
	Passed   int
	Failed   int
	Warnings int
	Duration time.Duration
	Success  bool
}

// RunStartupValidation checks the loaded configuration and prints a colored
// pass/fail report to out. It verifies only what the relay needs to start:
// a provider credential, a sane listening port, and the abuse guard settings.
// Storage configuration is optional and reported as a warning when absent.
func RunStartupValidation(cfg *Config, out io.Writer) ValidationResult {
	start := time.Now()

	result := ValidationResult{Success: true}
	printHeader(out, "Startup Validation")

	check := func(step ValidationStep) {
		result.Steps = append(result.Steps, step)
		switch step.Status {
		case StepPassed:
			result.Passed++
		case StepFailed:
			result.Failed++
			result.Success = false
		case StepWarning:
			result.Warnings++
		}
		printStep(out, step)
	}

	// Generation provider credential
	switch {
	case cfg.StabilityAPIKey != "":
		check(ValidationStep{Name: "Generation provider credential", Status: StepPassed, Message: "stability"})
	case cfg.OpenAIAPIKey != "":
		check(ValidationStep{Name: "Generation provider credential", Status: StepPassed, Message: "openai"})
	default:
		check(ValidationStep{
			Name:    "Generation provider credential",
			Status:  StepFailed,
			Message: "set STABILITY_API_KEY or OPENAI_API_KEY",
		})
	}

	// Listening port
	if cfg.Port >= 1 && cfg.Port <= 65535 {
		check(ValidationStep{Name: "Listening port", Status: StepPassed, Message: fmt.Sprintf("%d", cfg.Port)})
	} else {
		check(ValidationStep{Name: "Listening port", Status: StepFailed, Message: fmt.Sprintf("invalid port %d", cfg.Port)})
	}

	// Abuse guard settings
	if cfg.RateLimitMax >= 1 && cfg.RateLimitWindowMinutes >= 1 {
		check(ValidationStep{
			Name:    "Abuse guard",
			Status:  StepPassed,
			Message: fmt.Sprintf("%d requests / %dm window", cfg.RateLimitMax, cfg.RateLimitWindowMinutes),
		})
	} else {
		check(ValidationStep{Name: "Abuse guard", Status: StepFailed, Message: "invalid rate limit settings"})
	}

	// Storage provider (optional)
	if cfg.HasStorage() {
		check(ValidationStep{Name: "Storage provider", Status: StepPassed, Message: cfg.S3Bucket})
	} else {
		check(ValidationStep{
			Name:    "Storage provider",
			Status:  StepWarning,
			Message: "S3_BUCKET not set; /upload-image will store to local disk",
		})
	}

	// Cross-origin callers
	if len(cfg.AllowedOrigins) > 0 {
		check(ValidationStep{
			Name:    "Cross-origin callers",
			Status:  StepPassed,
			Message: fmt.Sprintf("%d origin(s) allowed", len(cfg.AllowedOrigins)),
		})
	} else {
		check(ValidationStep{Name: "Cross-origin callers", Status: StepWarning, Message: "no ALLOWED_ORIGINS configured"})
	}

	result.Duration = time.Since(start)
	printSummary(out, result)
	return result
}

func printHeader(out io.Writer, title string) {
	fmt.Fprintln(out)
	color.New(color.FgCyan, color.Bold).Fprintf(out, "━━━ %s ━━━\n", title)
	fmt.Fprintln(out)
}

func printStep(out io.Writer, step ValidationStep) {
	var icon string
	var clr *color.Color

	switch step.Status {
	case StepPassed:
		icon = "✓"
		clr = color.New(color.FgGreen)
	case StepFailed:
		icon = "✗"
		clr = color.New(color.FgRed)
	case StepWarning:
		icon = "!"
		clr = color.New(color.FgYellow)
	default:
		icon = "?"
		clr = color.New(color.FgWhite)
	}

	clr.Fprintf(out, "  %s %s", icon, step.Name)
	if step.Message != "" {
		color.New(color.FgHiBlack).Fprintf(out, " - %s", step.Message)
	}
	fmt.Fprintln(out)
}

func printSummary(out io.Writer, result ValidationResult) {
	fmt.Fprintln(out)
	if result.Success {
		color.New(color.FgGreen, color.Bold).Fprintf(out, "━━━ Validation Passed ")
		color.New(color.FgHiBlack).Fprintf(out, "(%d/%d checks passed in %v)",
			result.Passed, len(result.Steps), result.Duration.Round(time.Millisecond))
		color.New(color.FgGreen, color.Bold).Fprintln(out, " ━━━")
	} else {
		color.New(color.FgRed, color.Bold).Fprintf(out, "━━━ Validation Failed ")
		color.New(color.FgHiBlack).Fprintf(out, "(%d passed, %d failed)", result.Passed, result.Failed)
		color.New(color.FgRed, color.Bold).Fprintln(out, " ━━━")
	}
	fmt.Fprintln(out)
}
