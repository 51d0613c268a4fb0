package mcp

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/paysim/internal/constants"
	"github.com/nvandessel/paysim/internal/convergence"
	"github.com/nvandessel/paysim/internal/forecast"
	"github.com/nvandessel/paysim/internal/intervention"
	"github.com/nvandessel/paysim/internal/models"
	"github.com/nvandessel/paysim/internal/population"
	"github.com/nvandessel/paysim/internal/ratelimit"
	"github.com/nvandessel/paysim/internal/review"
	"github.com/nvandessel/paysim/internal/simulation"
	"github.com/nvandessel/paysim/internal/store"
)

const (
	// defaultEmployeeLimit caps the employees listed by paysim_below_median.
	defaultEmployeeLimit = 20

	// maxToolPopulation bounds populations generated through the server.
	maxToolPopulation = 100000

	// maxForecastEmployees bounds the ids one paysim_forecast call projects.
	maxForecastEmployees = 50

	runURIPrefix = "paysim://runs/"
)

// registerTools registers all paysim MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "paysim_generate",
		Description: "Generate a synthetic employee population with realistic pay inequality and summarise it",
	}, s.handleGenerate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "paysim_simulate",
		Description: "Generate a population, run annual performance review cycles over it and report how inequality evolves. The run is stored.",
	}, s.handleSimulate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "paysim_below_median",
		Description: "Find employees paid below their level median and recommend a strategy to close the gaps",
	}, s.handleBelowMedian)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "paysim_remediation",
		Description: "Model, score and rank strategies for closing the gender pay gap within a budget",
	}, s.handleRemediation)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "paysim_forecast",
		Description: "Project employees' salaries over the coming years under performance scenarios, with risks and recommended actions",
	}, s.handleForecast)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "paysim_runs",
		Description: "List stored simulation runs, newest first",
	}, s.handleRuns)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "paysim_validate",
		Description: "Self-check the salary uplift table, the Gini coefficient implementation and the growth arithmetic",
	}, s.handleValidate)
}

// registerResources registers MCP resources for reading stored runs.
func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         "paysim://runs",
		Name:        "paysim-runs",
		Description: "Stored simulation runs with their headline inequality metrics.",
		MIMEType:    "text/markdown",
	}, s.handleRunsResource)

	s.server.AddResourceTemplate(&sdk.ResourceTemplate{
		URITemplate: runURIPrefix + "{id}",
		Name:        "paysim-run",
		Description: "Cycle-by-cycle inequality report for one stored run, with the recommended below-median intervention.",
		MIMEType:    "text/markdown",
	}, s.handleRunResource)
}

// generationOptions layers tool arguments over the configured population settings.
func (s *Server) generationOptions(size int, seed *int64, gap *float64) (population.Options, error) {
	opts := s.settings.Population.Options(s.logger)
	opts.Now = s.now
	if size < 0 {
		return opts, fmt.Errorf("size must be positive, got %d", size)
	}
	if size > 0 {
		opts.PopulationSize = size
	}
	if opts.PopulationSize > maxToolPopulation {
		return opts, fmt.Errorf("size must be at most %d, got %d", maxToolPopulation, opts.PopulationSize)
	}
	if seed != nil {
		opts.RandomSeed = *seed
	}
	if gap != nil {
		opts.GenderPayGapPercent = gap
	}
	return opts, nil
}

// resolvePopulation loads the population an analysis tool should use and
// describes where it came from.
func (s *Server) resolvePopulation(ctx context.Context, src PopulationSource) (models.Population, string, error) {
	if src.RunID == "" {
		if src.Phase != "" {
			return nil, "", fmt.Errorf("phase requires run_id")
		}
		opts, err := s.generationOptions(src.Size, src.Seed, src.GenderPayGapPercent)
		if err != nil {
			return nil, "", err
		}
		pop, err := population.Generate(opts)
		if err != nil {
			return nil, "", fmt.Errorf("failed to generate population: %w", err)
		}
		return pop, fmt.Sprintf("generated %d employees (seed %d)", len(pop), opts.RandomSeed), nil
	}

	if src.Size != 0 || src.Seed != nil || src.GenderPayGapPercent != nil {
		return nil, "", fmt.Errorf("size, seed and gender_pay_gap_percent cannot be combined with run_id")
	}
	phase := constants.Phase(src.Phase)
	if phase == "" {
		phase = constants.PhaseFinal
	}
	if !phase.Valid() {
		return nil, "", fmt.Errorf("invalid phase %q (must be %s or %s)", src.Phase, constants.PhaseInitial, constants.PhaseFinal)
	}

	run, err := s.store.GetRun(ctx, src.RunID)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return nil, "", fmt.Errorf("run not found: %s", src.RunID)
		}
		return nil, "", fmt.Errorf("failed to load run: %w", err)
	}

	pop := run.Final
	if phase == constants.PhaseInitial {
		pop = run.Initial
	}
	return pop, fmt.Sprintf("run %s (%s population)", run.ID, phase), nil
}

// handleGenerate implements the paysim_generate tool.
func (s *Server) handleGenerate(ctx context.Context, req *sdk.CallToolRequest, args GenerateInput) (_ *sdk.CallToolResult, _ GenerateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("paysim_generate", start, retErr, sanitizeToolParams(map[string]any{
			"size": args.Size, "seed": args.Seed, "gender_pay_gap_percent": args.GenderPayGapPercent,
			"save": args.Save, "label": args.Label,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "paysim_generate"); err != nil {
		return nil, GenerateOutput{}, err
	}

	opts, err := s.generationOptions(args.Size, args.Seed, args.GenderPayGapPercent)
	if err != nil {
		return nil, GenerateOutput{}, err
	}
	pop, err := population.Generate(opts)
	if err != nil {
		return nil, GenerateOutput{}, fmt.Errorf("failed to generate population: %w", err)
	}

	summary := summarizePopulation(pop)
	check := population.ValidateSalaryConstraints(pop)
	out := GenerateOutput{
		Seed:               opts.RandomSeed,
		Summary:            summary,
		SeniorMedian:       check.SeniorMedian,
		SeniorMedianPassed: check.Passed,
		Message: fmt.Sprintf("Generated %d employees with a %.2f%% gender pay gap",
			summary.Total, summary.GenderGapPercent),
	}

	if args.Save {
		run := store.NewRun(store.RunParams{Label: args.Label, RandomSeed: opts.RandomSeed}, pop, nil)
		if err := s.store.SaveRun(ctx, run); err != nil {
			return nil, GenerateOutput{}, fmt.Errorf("failed to save run: %w", err)
		}
		out.RunID = run.ID
		out.Message += fmt.Sprintf(" (saved as run %s)", run.ID)
	}

	return nil, out, nil
}

// handleSimulate implements the paysim_simulate tool.
func (s *Server) handleSimulate(ctx context.Context, req *sdk.CallToolRequest, args SimulateInput) (_ *sdk.CallToolResult, _ SimulateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("paysim_simulate", start, retErr, sanitizeToolParams(map[string]any{
			"size": args.Size, "seed": args.Seed, "gender_pay_gap_percent": args.GenderPayGapPercent,
			"cycles": args.Cycles, "performance_consistency": args.PerformanceConsistency,
			"stop_on_convergence": args.StopOnConvergence, "label": args.Label,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "paysim_simulate"); err != nil {
		return nil, SimulateOutput{}, err
	}

	cycles := s.settings.Simulation.Cycles
	if args.Cycles != nil {
		cycles = *args.Cycles
	}
	if cycles < 0 || cycles > constants.MaxCycles {
		return nil, SimulateOutput{}, fmt.Errorf("cycles must be between 0 and %d, got %d", constants.MaxCycles, cycles)
	}
	consistency := s.settings.Simulation.PerformanceConsistency
	if args.PerformanceConsistency != nil {
		consistency = *args.PerformanceConsistency
	}

	opts, err := s.generationOptions(args.Size, args.Seed, args.GenderPayGapPercent)
	if err != nil {
		return nil, SimulateOutput{}, err
	}
	pop, err := population.Generate(opts)
	if err != nil {
		return nil, SimulateOutput{}, fmt.Errorf("failed to generate population: %w", err)
	}

	simCfg := s.settings.SimulatorConfig(s.logger, nil)
	simCfg.RandomSeed = opts.RandomSeed
	simCfg.Now = s.now
	if args.StopOnConvergence != nil {
		if *args.StopOnConvergence && simCfg.Convergence.Lookback < 1 {
			simCfg.Convergence = simulation.DefaultConvergenceConfig()
		}
		simCfg.Convergence.Enabled = *args.StopOnConvergence
	}

	sim, err := simulation.NewSimulator(pop, simCfg)
	if err != nil {
		return nil, SimulateOutput{}, fmt.Errorf("failed to create simulator: %w", err)
	}
	result, err := sim.Run(cycles, consistency)
	if err != nil {
		return nil, SimulateOutput{}, fmt.Errorf("simulation failed: %w", err)
	}

	run := store.NewRun(store.RunParams{
		Label:                  args.Label,
		RandomSeed:             opts.RandomSeed,
		CyclesRequested:        cycles,
		PerformanceConsistency: consistency,
	}, pop, result)
	if err := s.store.SaveRun(ctx, run); err != nil {
		return nil, SimulateOutput{}, fmt.Errorf("failed to save run: %w", err)
	}

	first, last := result.Progression[0], result.Progression[len(result.Progression)-1]
	out := SimulateOutput{
		RunID:           run.ID,
		Seed:            opts.RandomSeed,
		CyclesRequested: cycles,
		CyclesCompleted: run.CyclesCompleted(),
		Converged:       result.Converged,
		ConvergedCycle:  result.ConvergedCycle,
		Progression:     snapshotSummaries(result.Progression),
		Analysis:        simulation.FinalAnalysis(result.Progression),
		Message: fmt.Sprintf("Simulated %d cycles over %d employees: Gini %.4f -> %.4f, gender gap %.2f%% -> %.2f%%",
			run.CyclesCompleted(), len(pop), first.GiniCoefficient, last.GiniCoefficient,
			first.GenderGapPercent, last.GenderGapPercent),
	}
	if result.Converged {
		out.Message += fmt.Sprintf(" (converged at cycle %d)", result.ConvergedCycle)
	}

	return nil, out, nil
}

// handleBelowMedian implements the paysim_below_median tool.
func (s *Server) handleBelowMedian(ctx context.Context, req *sdk.CallToolRequest, args BelowMedianInput) (_ *sdk.CallToolResult, _ BelowMedianOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("paysim_below_median", start, retErr, sanitizeToolParams(map[string]any{
			"run_id": args.RunID, "phase": args.Phase, "size": args.Size, "seed": args.Seed,
			"gender_pay_gap_percent": args.GenderPayGapPercent, "min_gap_percent": args.MinGapPercent,
			"exclude_gender": args.ExcludeGender, "limit": args.Limit,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "paysim_below_median"); err != nil {
		return nil, BelowMedianOutput{}, err
	}

	minGap := s.settings.Analysis.MinGapPercent
	if args.MinGapPercent != nil {
		minGap = *args.MinGapPercent
	}
	if minGap < 0 {
		return nil, BelowMedianOutput{}, fmt.Errorf("min_gap_percent must be non-negative, got %v", minGap)
	}
	limit := args.Limit
	if limit < 0 {
		return nil, BelowMedianOutput{}, fmt.Errorf("limit must be non-negative, got %d", limit)
	}
	if limit == 0 {
		limit = defaultEmployeeLimit
	}

	pop, source, err := s.resolvePopulation(ctx, args.PopulationSource)
	if err != nil {
		return nil, BelowMedianOutput{}, err
	}
	analyzer, err := convergence.NewAnalyzer(pop, convergence.Options{Now: s.now, Logger: s.logger})
	if err != nil {
		return nil, BelowMedianOutput{}, fmt.Errorf("failed to analyse population: %w", err)
	}
	analysis := analyzer.IdentifyBelowMedian(minGap, !args.ExcludeGender)
	rec := analyzer.RecommendStrategies(analysis)

	employees := slices.Clone(analysis.Employees)
	slices.SortStableFunc(employees, func(a, b convergence.BelowMedianEmployee) int {
		return cmp.Compare(b.GapPercent, a.GapPercent)
	})
	if len(employees) > limit {
		employees = employees[:limit]
	}

	strategies := make([]StrategySummary, len(rec.Strategies))
	for i, st := range rec.Strategies {
		strategies[i] = strategySummary(st)
	}

	return nil, BelowMedianOutput{
		Source:             source,
		TotalEmployees:     analysis.TotalEmployees,
		BelowMedianCount:   analysis.BelowMedianCount,
		BelowMedianPercent: analysis.BelowMedianPercent,
		Statistics:         analysis.Statistics,
		GenderAnalysis:     analysis.GenderAnalysis,
		Prioritization:     rec.Prioritization,
		Recommended:        strategySummary(rec.Primary),
		Strategies:         strategies,
		TotalBudget:        rec.TotalBudgetRequired.StringFixed(2),
		CostBenefit: CostBenefitSummary{
			TotalInvestment:       rec.CostBenefit.TotalInvestment.StringFixed(2),
			PotentialSalaryImpact: rec.CostBenefit.PotentialSalaryImpact.StringFixed(2),
			RetentionBenefit:      rec.CostBenefit.RetentionBenefit.StringFixed(2),
			TotalBenefit:          rec.CostBenefit.TotalBenefit.StringFixed(2),
			ROIRatio:              rec.CostBenefit.ROIRatio,
			PaybackMonths:         rec.CostBenefit.PaybackMonths,
		},
		Timeline:  rec.Timeline,
		Employees: employees,
	}, nil
}

// handleRemediation implements the paysim_remediation tool.
func (s *Server) handleRemediation(ctx context.Context, req *sdk.CallToolRequest, args RemediationInput) (_ *sdk.CallToolResult, _ RemediationOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("paysim_remediation", start, retErr, sanitizeToolParams(map[string]any{
			"run_id": args.RunID, "phase": args.Phase, "size": args.Size, "seed": args.Seed,
			"gender_pay_gap_percent": args.GenderPayGapPercent, "target_gap_percent": args.TargetGapPercent,
			"max_years": args.MaxYears, "budget_constraint": args.BudgetConstraint,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "paysim_remediation"); err != nil {
		return nil, RemediationOutput{}, err
	}

	params := s.settings.Analysis.RemediationParams()
	if args.TargetGapPercent != nil {
		params.TargetGapPercent = *args.TargetGapPercent
	}
	if args.MaxYears != 0 {
		params.MaxYears = args.MaxYears
	}
	if args.BudgetConstraint != nil {
		params.BudgetConstraint = *args.BudgetConstraint
	}
	if err := params.Validate(); err != nil {
		return nil, RemediationOutput{}, err
	}

	pop, source, err := s.resolvePopulation(ctx, args.PopulationSource)
	if err != nil {
		return nil, RemediationOutput{}, err
	}
	modeller, err := intervention.NewModeller(pop, intervention.Options{Logger: s.logger})
	if err != nil {
		return nil, RemediationOutput{}, fmt.Errorf("failed to model population: %w", err)
	}
	rem, err := modeller.ModelRemediation(params)
	if err != nil {
		return nil, RemediationOutput{}, fmt.Errorf("failed to model remediation: %w", err)
	}

	evaluations := make([]EvaluationSummary, len(rem.Evaluations))
	for i, ev := range rem.Evaluations {
		evaluations[i] = evaluationSummary(ev)
	}
	var inapplicable []string
	for _, st := range rem.Strategies {
		if !st.Applicable {
			inapplicable = append(inapplicable, string(st.Name))
		}
	}

	recommended := rem.Recommended.Strategy.Name
	return nil, RemediationOutput{
		Source:              source,
		GenderPayGapPercent: rem.CurrentState.GenderPayGapPercent,
		MaleMedianSalary:    rem.CurrentState.MaleMedianSalary,
		FemaleMedianSalary:  rem.CurrentState.FemaleMedianSalary,
		TotalPayroll:        rem.CurrentState.TotalPayroll.StringFixed(2),
		UnderpaidFemales:    rem.CurrentState.AffectedFemaleEmployees,
		BudgetLimit:         rem.TargetState.BudgetConstraintAmount.StringFixed(2),
		Evaluations:         evaluations,
		Inapplicable:        inapplicable,
		Recommended:         string(recommended),
		RecommendedTitle:    recommended.Title(),
		Confidence:          string(rem.Recommended.Confidence),
		Plan:                rem.Plan,
		ROI: ROISummary{
			TotalInvestment:  rem.ROI.TotalInvestment.StringFixed(2),
			AnnualBenefits:   rem.ROI.AnnualBenefits.StringFixed(2),
			PaybackYears:     rem.ROI.PaybackYears,
			ROI3Year:         rem.ROI.ROI3Year,
			RetentionBenefit: rem.ROI.RetentionBenefit.StringFixed(2),
		},
		RiskAssessment: rem.RiskAssessment,
		Message: fmt.Sprintf("Recommended %s (%s confidence) to move the gender pay gap from %.2f%% towards %.2f%%",
			recommended.Title(), rem.Recommended.Confidence, rem.CurrentState.GenderPayGapPercent, params.TargetGapPercent),
	}, nil
}

// handleForecast implements the paysim_forecast tool.
func (s *Server) handleForecast(ctx context.Context, req *sdk.CallToolRequest, args ForecastInput) (_ *sdk.CallToolResult, _ ForecastOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("paysim_forecast", start, retErr, sanitizeToolParams(map[string]any{
			"run_id": args.RunID, "phase": args.Phase, "size": args.Size, "seed": args.Seed,
			"gender_pay_gap_percent": args.GenderPayGapPercent, "employee_ids": len(args.EmployeeIDs),
			"years": args.Years, "scenarios": strings.Join(args.Scenarios, ","),
			"market_adjustments": args.MarketAdjustments, "detailed": args.Detailed,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "paysim_forecast"); err != nil {
		return nil, ForecastOutput{}, err
	}

	if len(args.EmployeeIDs) == 0 {
		return nil, ForecastOutput{}, fmt.Errorf("employee_ids must list at least one employee")
	}
	if len(args.EmployeeIDs) > maxForecastEmployees {
		return nil, ForecastOutput{}, fmt.Errorf("employee_ids may list at most %d employees, got %d", maxForecastEmployees, len(args.EmployeeIDs))
	}
	years := s.settings.Forecast.Years
	if args.Years != 0 {
		years = args.Years
	}
	if years < 1 || years > forecast.MaxYears {
		return nil, ForecastOutput{}, fmt.Errorf("years must be between 1 and %d, got %d", forecast.MaxYears, years)
	}
	scenarios := make([]forecast.Scenario, 0, len(args.Scenarios))
	for _, name := range args.Scenarios {
		sc, err := forecast.ParseScenario(name)
		if err != nil {
			return nil, ForecastOutput{}, err
		}
		scenarios = append(scenarios, sc)
	}

	pop, source, err := s.resolvePopulation(ctx, args.PopulationSource)
	if err != nil {
		return nil, ForecastOutput{}, err
	}
	opts := s.settings.ProjectorOptions(s.logger)
	opts.Now = s.now
	if args.Seed != nil {
		opts.RandomSeed = *args.Seed
	}
	if args.MarketAdjustments != nil {
		opts.SkipMarketAdjustments = !*args.MarketAdjustments
	}
	projector, err := forecast.NewProjector(pop, opts)
	if err != nil {
		return nil, ForecastOutput{}, fmt.Errorf("failed to build projector: %w", err)
	}
	batch, err := projector.ProjectMany(args.EmployeeIDs, years, scenarios...)
	if err != nil {
		return nil, ForecastOutput{}, err
	}
	medians, err := projector.MedianProgression(years)
	if err != nil {
		return nil, ForecastOutput{}, err
	}

	out := ForecastOutput{
		Source:       source,
		Years:        years,
		Summaries:    batch.Summaries(),
		Missing:      batch.Missing,
		LevelMedians: medians,
		Message: fmt.Sprintf("Projected %d of %d employees over %d years",
			len(batch.Projections), len(args.EmployeeIDs), years),
	}
	if args.Detailed {
		out.Projections = make([]ProjectionDetail, len(batch.Projections))
		for i, p := range batch.Projections {
			out.Projections[i] = projectionDetail(p)
		}
	}
	return nil, out, nil
}

// handleRuns implements the paysim_runs tool.
func (s *Server) handleRuns(ctx context.Context, req *sdk.CallToolRequest, args RunsInput) (_ *sdk.CallToolResult, _ RunsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("paysim_runs", start, retErr, sanitizeToolParams(map[string]any{"limit": args.Limit}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "paysim_runs"); err != nil {
		return nil, RunsOutput{}, err
	}
	if args.Limit < 0 {
		return nil, RunsOutput{}, fmt.Errorf("limit must be non-negative, got %d", args.Limit)
	}

	runs, err := s.store.ListRuns(ctx)
	if err != nil {
		return nil, RunsOutput{}, fmt.Errorf("failed to list runs: %w", err)
	}
	if args.Limit > 0 && len(runs) > args.Limit {
		runs = runs[:args.Limit]
	}
	if runs == nil {
		runs = []store.RunSummary{}
	}

	return nil, RunsOutput{Runs: runs, Count: len(runs)}, nil
}

// handleValidate implements the paysim_validate tool.
func (s *Server) handleValidate(ctx context.Context, req *sdk.CallToolRequest, args ValidateInput) (_ *sdk.CallToolResult, _ ValidateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("paysim_validate", start, retErr, sanitizeToolParams(map[string]any{}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "paysim_validate"); err != nil {
		return nil, ValidateOutput{}, err
	}

	cases, upliftOK := review.ValidateUpliftCalculations(s.logger)
	checks, inequalityOK := simulation.ValidateInequalityCalculations(s.logger)
	growth, forecastOK := forecast.ValidateCalculations(s.logger)

	var failures []string
	for _, c := range cases {
		if !c.Passed {
			failures = append(failures, fmt.Sprintf("%s at level %d: expected %.2f, got %.2f",
				c.Rating, c.Level, c.ExpectedNewSalary, c.ActualNewSalary))
		}
	}

	return nil, ValidateOutput{
		UpliftCases:      len(cases),
		UpliftPassed:     upliftOK,
		UpliftFailures:   failures,
		InequalityChecks: checks,
		InequalityPassed: inequalityOK,
		ForecastChecks:   growth,
		ForecastPassed:   forecastOK,
		Passed:           upliftOK && inequalityOK && forecastOK,
	}, nil
}

// handleRunsResource lists stored runs as a markdown table.
func (s *Server) handleRunsResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	runs, err := s.store.ListRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# Simulation Runs\n\n")
	if len(runs) == 0 {
		sb.WriteString("No runs stored yet. Use paysim_simulate to create one.\n")
	} else {
		sb.WriteString("| ID | Created | Label | Employees | Cycles | Final Gini | Final Gap |\n")
		sb.WriteString("|---|---|---|---|---|---|---|\n")
		for _, r := range runs {
			fmt.Fprintf(&sb, "| %s | %s | %s | %d | %d/%d | %.4f | %.2f%% |\n",
				r.ID, r.CreatedAt.Format(time.RFC3339), r.Label, r.PopulationSize,
				r.CyclesCompleted, r.CyclesRequested, r.FinalGini, r.FinalGenderGap)
		}
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      req.Params.URI,
				MIMEType: "text/markdown",
				Text:     sb.String(),
			},
		},
	}, nil
}

// handleRunResource renders one stored run.
// URI format: paysim://runs/{id}
func (s *Server) handleRunResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	uri := req.Params.URI
	if !strings.HasPrefix(uri, runURIPrefix) {
		return nil, fmt.Errorf("invalid URI format: %s", uri)
	}
	runID := strings.TrimPrefix(uri, runURIPrefix)
	if runID == "" {
		return nil, fmt.Errorf("run ID is required")
	}

	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return nil, sdk.ResourceNotFoundError(uri)
		}
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      uri,
				MIMEType: "text/markdown",
				Text:     s.renderRun(run),
			},
		},
	}, nil
}

// renderRun formats a run as a markdown report.
func (s *Server) renderRun(run *store.Run) string {
	var sb strings.Builder
	title := run.ID
	if run.Label != "" {
		title = run.Label + " (" + run.ID + ")"
	}
	fmt.Fprintf(&sb, "# Run: %s\n\n", title)
	fmt.Fprintf(&sb, "**Created:** %s\n", run.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "**Seed:** %d\n", run.RandomSeed)
	fmt.Fprintf(&sb, "**Employees:** %d\n", len(run.Initial))
	fmt.Fprintf(&sb, "**Cycles:** %d of %d", run.CyclesCompleted(), run.CyclesRequested)
	if run.Converged {
		fmt.Fprintf(&sb, " (converged at cycle %d)", run.ConvergedCycle)
	}
	sb.WriteString("\n")

	if len(run.Snapshots) > 0 {
		sb.WriteString("\n## Inequality by Cycle\n\n")
		sb.WriteString("| Cycle | Gini | Gender Gap | Median Salary | Performance Correlation |\n")
		sb.WriteString("|---|---|---|---|---|\n")
		for _, snap := range run.Snapshots {
			fmt.Fprintf(&sb, "| %d | %.4f | %.2f%% | %.2f | %.3f |\n",
				snap.Cycle, snap.GiniCoefficient, snap.GenderGapPercent, snap.MedianSalary, snap.PerformanceSalaryCorrelation)
		}
	}

	if a := simulation.FinalAnalysis(run.Snapshots); a.Sufficient {
		sb.WriteString("\n## Outcome\n\n")
		fmt.Fprintf(&sb, "- Gini reduction: %.1f%%\n", a.GiniReductionPercent)
		fmt.Fprintf(&sb, "- Gender gap: %.2f%% -> %.2f%%\n", a.InitialGenderGap, a.FinalGenderGap)
		fmt.Fprintf(&sb, "- Median salary increase: %.2f (%.1f%%)\n", a.MedianSalaryIncrease, a.MedianSalaryIncreasePercent)
		if a.CyclesToGenderParity != nil {
			fmt.Fprintf(&sb, "- Gender parity reached at cycle %d\n", *a.CyclesToGenderParity)
		}
	}

	analyzer, err := convergence.NewAnalyzer(run.Final, convergence.Options{Now: s.now, Logger: s.logger})
	if err != nil {
		return sb.String()
	}
	rec := analyzer.RecommendStrategies(analyzer.IdentifyBelowMedian(s.settings.Analysis.MinGapPercent, false))
	sb.WriteString("\n## Below-Median Intervention\n\n")
	fmt.Fprintf(&sb, "- Priority: %d high, %d medium, %d low\n",
		rec.Prioritization.High, rec.Prioritization.Medium, rec.Prioritization.Low)
	fmt.Fprintf(&sb, "- Recommended: %s (%s over %d months)\n",
		rec.Primary.Name.Title(), rec.Primary.TotalCost.StringFixed(2), rec.Primary.TimelineMonths)

	return sb.String()
}

// summarizePopulation flattens population.Summary for tool output.
func summarizePopulation(pop models.Population) PopulationSummary {
	sum := population.Summarize(pop)
	out := PopulationSummary{
		Total:            sum.Total,
		MaleCount:        sum.GenderCounts[models.GenderMale],
		FemaleCount:      sum.GenderCounts[models.GenderFemale],
		SalaryMin:        sum.SalaryMin,
		SalaryMax:        sum.SalaryMax,
		MedianSalary:     sum.MedianSalary,
		MaleMedian:       sum.MaleMedian,
		FemaleMedian:     sum.FemaleMedian,
		GenderGapPercent: sum.GenderGapPercent,
		Levels:           make([]LevelSummary, 0, len(sum.LevelStatistics)),
	}
	for _, level := range sum.Levels() {
		ls := sum.LevelStatistics[level]
		out.Levels = append(out.Levels, LevelSummary{
			Level:  level,
			Count:  ls.Count,
			Median: ls.Median,
			Mean:   ls.Mean,
			Std:    ls.Std,
		})
	}
	return out
}

func snapshotSummaries(progression []models.InequalitySnapshot) []SnapshotSummary {
	out := make([]SnapshotSummary, len(progression))
	for i, snap := range progression {
		levels := make([]int, 0, len(snap.GenderGapByLevel))
		for level := range snap.GenderGapByLevel {
			levels = append(levels, level)
		}
		slices.Sort(levels)
		gaps := make([]LevelGap, len(levels))
		for j, level := range levels {
			gaps[j] = LevelGap{Level: level, GapPercent: snap.GenderGapByLevel[level]}
		}

		out[i] = SnapshotSummary{
			Cycle:                        snap.Cycle,
			GiniCoefficient:              snap.GiniCoefficient,
			CoefficientOfVariation:       snap.CoefficientOfVariation,
			MedianSalary:                 snap.MedianSalary,
			MeanSalary:                   snap.MeanSalary,
			GenderGapPercent:             snap.GenderGapPercent,
			PerformanceSalaryCorrelation: snap.PerformanceSalaryCorrelation,
			LevelSalaryCorrelation:       snap.LevelSalaryCorrelation,
			GenderGapByLevel:             gaps,
		}
	}
	return out
}

func strategySummary(st convergence.Strategy) StrategySummary {
	return StrategySummary{
		Name:               string(st.Name),
		Title:              st.Name.Title(),
		Applicable:         st.Applicable,
		Reason:             st.Reason,
		AffectedEmployees:  st.AffectedEmployees,
		TotalCost:          st.TotalCost.StringFixed(2),
		CostPerEmployee:    st.CostPerEmployee.StringFixed(2),
		TimelineMonths:     st.TimelineMonths,
		SuccessProbability: st.SuccessProbability,
		Description:        st.Description,
	}
}

func evaluationSummary(ev intervention.Evaluation) EvaluationSummary {
	st := ev.Strategy
	return EvaluationSummary{
		Name:                string(st.Name),
		Title:               st.Name.Title(),
		TotalCost:           st.TotalCost.StringFixed(2),
		AnnualCost:          st.AnnualCost.StringFixed(2),
		CostPercentPayroll:  st.CostPercentPayroll,
		TimelineYears:       st.TimelineYears,
		AffectedEmployees:   st.AffectedEmployees,
		ProjectedFinalGap:   st.ProjectedFinalGap,
		GapReductionPercent: st.GapReductionPercent,
		Feasibility:         string(st.Feasibility),
		OverallScore:        ev.Scores.Overall,
		Effectiveness:       ev.Scores.Effectiveness,
		FeasibilityScore:    ev.Scores.Feasibility,
		Risk:                ev.Scores.Risk,
		CostEfficiency:      ev.Scores.CostEfficiency,
	}
}

func projectionDetail(p forecast.Projection) ProjectionDetail {
	scenarios := make([]forecast.ScenarioProjection, 0, len(p.Projections))
	for _, sc := range forecast.Scenarios {
		if proj, ok := p.Projections[sc]; ok {
			scenarios = append(scenarios, proj)
		}
	}
	return ProjectionDetail{
		EmployeeID:     p.EmployeeID,
		Current:        p.Current,
		Scenarios:      scenarios,
		Analysis:       p.Analysis,
		Recommendation: p.Recommendation,
	}
}
