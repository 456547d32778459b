package handlers

import (
	"context"
	"net/http"

	"github.com/benvon/tag-catalog/internal/models"
	"github.com/benvon/tag-catalog/internal/permission"
	"github.com/benvon/tag-catalog/internal/queue"
	"github.com/benvon/tag-catalog/internal/request"
	"go.uber.org/zap"
)

// Deps bundles the collaborators shared by the catalog handlers
type Deps struct {
	Oracle permission.Oracle
	Jobs   queue.Enqueuer
	Logger *zap.Logger
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// evaluate asks the oracle what the request's user may do on subject
func (d Deps) evaluate(r *http.Request, subject permission.Subject) (models.OperationPermission, error) {
	return d.Oracle.Evaluate(r.Context(), request.UserFromContext(r), subject)
}

// requireView fails with ErrForbidden when the user cannot see subject
func (d Deps) requireView(r *http.Request, subject permission.Subject) error {
	perm, err := d.evaluate(r, subject)
	if err != nil {
		return err
	}
	if !perm.Allows(models.OperationViewBasic) {
		return permission.GuardResult{Reason: "no permission to view " + string(subject.Resource)}.Error()
	}
	return nil
}

// enqueue publishes a follow-up job. Failures are logged and never fail the request.
func (d Deps) enqueue(ctx context.Context, job *queue.Job) {
	if d.Jobs == nil {
		return
	}
	if err := d.Jobs.Enqueue(ctx, job); err != nil {
		d.logger().Warn("failed_to_enqueue_job",
			zap.Error(err),
			zap.String("job_type", string(job.Type)),
			zap.String("entity_fqn", job.EntityFQN),
		)
	}
}
