package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/remedyops/remedy/internal/models"
	"github.com/remedyops/remedy/internal/review"
	"github.com/remedyops/remedy/internal/workflow"
)

// remediate runs one full remediation attempt for a deployment error.
// Every step is recorded as an AutomatedAction; the first terminal
// failure ends the attempt with the error marked failed.
func (o *Orchestrator) remediate(de models.DeploymentError) {
	o.mu.Lock()
	ctx := o.runCtx
	o.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	log := o.logger.With("deployment_id", de.DeploymentID, "error_id", de.ID)

	dep, err := o.registry.Get(de.DeploymentID)
	if err != nil {
		log.Error("deployment vanished before remediation", "error", err)
		return
	}

	log.Info("remediation attempt started", "error_text", de.ErrorText)

	// Analyze.
	analyzeID := o.beginAction(de.DeploymentID, models.ActionTypeAnalyzeCode,
		fmt.Sprintf("Analyze build failure: %s", truncate(de.ErrorText, 120)))

	if err := o.transitionError(&de, models.ErrorStatusAnalyzing); err != nil {
		o.failAction(analyzeID, "error already handled: "+err.Error())
		return
	}

	meta := models.Metadata{
		Name:        dep.Name,
		Environment: dep.Environment,
		Branch:      dep.Branch,
	}
	strategy, analysis := o.analyzer.Analyze(ctx, &de, meta)

	if err := o.registry.UpdateError(de.DeploymentID, de.ID, func(e *models.DeploymentError) {
		e.Analysis = analysis.RootCause
		e.SuggestedFix = analysis.SuggestedPatch
	}); err != nil {
		log.Error("failed to record analysis", "error", err)
	}

	result := fmt.Sprintf("fix type %s: %s", strategy.Type, truncate(analysis.RootCause, 200))
	if analysis.Degraded {
		result = "degraded template analysis; " + result
	}
	o.completeAction(analyzeID, result)

	if err := o.transitionError(&de, models.ErrorStatusFixing); err != nil {
		log.Error("error left analysis in unexpected state", "error", err)
		return
	}

	// Hand off to the workflow engine, or fall back in process.
	workflowID := o.beginAction(de.DeploymentID, models.ActionTypeTriggerWorkflow,
		"Submit remediation to workflow engine")

	dispatch, err := o.dispatcher.Dispatch(ctx, dep, &de)
	if err != nil {
		o.failAction(workflowID, err.Error())
		o.failError(de.DeploymentID, de.ID, "workflow dispatch failed: "+err.Error())
		return
	}

	if dispatch.FellBack {
		o.completeAction(workflowID, "engine unreachable; remediation continued in-process")
		o.remediateLocally(ctx, dep, de, strategy, analysis, log)
		return
	}

	// The engine owns the patch and review steps; wait for its verdict.
	done := make(chan struct{})
	var state workflow.ExecutionState
	var watchErr error
	o.dispatcher.WatchExecution(ctx, dispatch.ExecutionID, func(s workflow.ExecutionState, err error) {
		state, watchErr = s, err
		close(done)
	})
	<-done

	switch {
	case watchErr != nil:
		o.failAction(workflowID, "execution did not finish: "+watchErr.Error())
		log.Warn("workflow execution inconclusive, retrying in-process", "error", watchErr)
		o.remediateLocally(ctx, dep, de, strategy, analysis, log)
	case state == workflow.ExecutionSuccess:
		o.completeAction(workflowID, fmt.Sprintf("workflow execution %s succeeded", dispatch.ExecutionID))
		o.resolveError(de.DeploymentID, de.ID)
		log.Info("remediation completed by workflow engine", "execution_id", dispatch.ExecutionID)
	default:
		o.failAction(workflowID, fmt.Sprintf("workflow execution %s ended %s", dispatch.ExecutionID, state))
		log.Warn("workflow execution failed, retrying in-process", "state", state)
		o.remediateLocally(ctx, dep, de, strategy, analysis, log)
	}
}

// remediateLocally performs patch, review, merge, and redeploy in
// process: the fallback path when the engine cannot.
func (o *Orchestrator) remediateLocally(
	ctx context.Context,
	dep *models.Deployment,
	de models.DeploymentError,
	strategy models.FixStrategy,
	analysis *models.AnalysisResult,
	log *slog.Logger,
) {
	// Open the change request.
	prID := o.beginAction(de.DeploymentID, models.ActionTypeCreatePR,
		fmt.Sprintf("Open fix change request (%s)", strategy.Type))

	built, err := o.patcher.Build(ctx, dep, strategy, analysis)
	if err != nil {
		o.failAction(prID, err.Error())
		o.failError(de.DeploymentID, de.ID, "patch failed: "+err.Error())
		return
	}
	o.completeAction(prID, fmt.Sprintf("opened change #%d: %s", built.Change.Number, built.Change.URL))

	// Best-effort automated review.
	o.reviewer.Request(ctx, built.Change.Number)

	// Supervise checks and merge.
	fixID := o.beginAction(de.DeploymentID, models.ActionTypeFixIssue,
		fmt.Sprintf("Supervise checks and merge change #%d", built.Change.Number))

	if err := o.supervisor.Supervise(ctx, built.Change.Number); err != nil {
		if errors.Is(err, review.ErrManualMergeRequired) {
			o.failAction(fixID, "manual merge required")
		} else {
			o.failAction(fixID, err.Error())
		}
		o.failError(de.DeploymentID, de.ID, "merge supervision failed: "+err.Error())
		return
	}
	o.completeAction(fixID, fmt.Sprintf("change #%d merged", built.Change.Number))

	if err := o.registry.UpdateError(de.DeploymentID, de.ID, func(e *models.DeploymentError) {
		e.FixApplied = true
	}); err != nil {
		log.Warn("failed to record applied fix", "error", err)
	}

	// Close the loop with a fresh deployment.
	retryID := o.beginAction(de.DeploymentID, models.ActionTypeRetryDeployment,
		fmt.Sprintf("Redeploy %s from %s", dep.Name, dep.Branch))

	next, err := o.redeployer.Redeploy(ctx, dep)
	if err != nil {
		o.failAction(retryID, err.Error())
		o.failError(de.DeploymentID, de.ID, "redeploy failed: "+err.Error())
		return
	}
	o.completeAction(retryID, fmt.Sprintf("new deployment %s queued", next.ID))

	o.resolveError(de.DeploymentID, de.ID)
	log.Info("remediation attempt resolved", "new_deployment_id", next.ID)
}

// transitionError advances the local copy and the registry together.
func (o *Orchestrator) transitionError(de *models.DeploymentError, status models.ErrorStatus) error {
	if err := o.registry.UpdateError(de.DeploymentID, de.ID, func(e *models.DeploymentError) {
		e.Status = status
	}); err != nil {
		return err
	}
	de.Status = status
	return nil
}

// resolveError marks the error resolved with the fix applied.
func (o *Orchestrator) resolveError(deploymentID, errorID string) {
	err := o.registry.UpdateError(deploymentID, errorID, func(e *models.DeploymentError) {
		e.Status = models.ErrorStatusResolved
		e.FixApplied = true
	})
	if err != nil {
		o.logger.Error("failed to resolve error",
			"deployment_id", deploymentID,
			"error_id", errorID,
			"error", err,
		)
	}
}

// truncate cuts s to at most n bytes plus an ellipsis, backing up so the
// cut never splits a multi-byte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
