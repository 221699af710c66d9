package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/edbridge/portal-api/internal/data"
	domainauth "github.com/edbridge/portal-api/internal/domain/auth"
	"github.com/edbridge/portal-api/internal/observability/notify"
	"github.com/edbridge/portal-api/internal/ports"
	"github.com/edbridge/portal-api/internal/service/failurenotifier"
	"github.com/google/uuid"
)

// InternalUserWriter is the slice of the user repository provisioning needs.
type InternalUserWriter interface {
	Upsert(ctx context.Context, params data.CreateUserParams) (domainauth.InternalUser, error)
}

// ProvisioningServiceOptions groups dependencies for ProvisioningService.
type ProvisioningServiceOptions struct {
	Provider ports.IdentityProvider
	Users    InternalUserWriter
	Ledger   ports.ProvisionLedger
	Groups   ports.GroupMapper
	Notifier *failurenotifier.Service
	Logger   *slog.Logger
}

// ProvisioningService runs the create -> set password -> add group sequence
// against the IdP and records the internal user. The sequence is not
// transactional: a failure after creation leaves a partially provisioned
// account, which is written to the ledger for operational repair rather than
// rolled back.
type ProvisioningService struct {
	provider ports.IdentityProvider
	users    InternalUserWriter
	ledger   ports.ProvisionLedger
	groups   ports.GroupMapper
	notifier *failurenotifier.Service
	logger   *slog.Logger
}

// NewProvisioningService constructs a ProvisioningService.
func NewProvisioningService(opts ProvisioningServiceOptions) *ProvisioningService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ProvisioningService{
		provider: opts.Provider,
		users:    opts.Users,
		ledger:   opts.Ledger,
		groups:   opts.Groups,
		notifier: opts.Notifier,
		logger:   logger,
	}
}

// ProvisionInput groups parameters for ProvisionUser.
type ProvisionInput struct {
	Email       string
	Password    string
	Role        domainauth.Role
	FullName    *string
	CorporateID *int64
}

// ProvisionUser ensures the account exists at the IdP in the desired state
// and upserts the internal record. Replaying the same input converges on one
// user with the correct group and a permanent password; an already-existing
// username is not an error.
func (s *ProvisioningService) ProvisionUser(ctx context.Context, in ProvisionInput) (domainauth.InternalUser, error) {
	if in.Email == "" || in.Password == "" {
		return domainauth.InternalUser{}, errors.New("email and password are required")
	}
	if !in.Role.Valid() {
		return domainauth.InternalUser{}, fmt.Errorf("invalid role %q", in.Role)
	}

	group := s.groups.GroupFor(in.Role)

	provisioned, err := s.provider.CreateUser(ctx, ports.CreateUserInput{
		Email:    in.Email,
		Password: in.Password,
		Group:    group,
	})
	if err != nil {
		return domainauth.InternalUser{}, fmt.Errorf("create idp user: %w", err)
	}

	if err := s.provider.SetPermanentPassword(ctx, provisioned.Subject, in.Password); err != nil {
		s.recordFailure(ctx, provisioned, group, "set_password", err)
		return domainauth.InternalUser{}, errors.Join(domainauth.ErrPartialProvisioning,
			fmt.Errorf("set permanent password: %w", err))
	}

	if err := s.provider.AddToGroup(ctx, provisioned.Subject, group); err != nil {
		s.recordFailure(ctx, provisioned, group, "add_group", err)
		return domainauth.InternalUser{}, errors.Join(domainauth.ErrPartialProvisioning,
			fmt.Errorf("add to group: %w", err))
	}

	user, err := s.users.Upsert(ctx, data.CreateUserParams{
		CognitoSubject: provisioned.Subject,
		Email:          provisioned.Email,
		Role:           in.Role,
		FullName:       in.FullName,
		CorporateID:    in.CorporateID,
	})
	if err != nil {
		return domainauth.InternalUser{}, fmt.Errorf("store internal user: %w", err)
	}

	s.logger.InfoContext(ctx, "user provisioned",
		"subject", provisioned.Subject, "role", string(in.Role), "group", group)
	return user, nil
}

// Orphans lists partially provisioned accounts awaiting operational repair.
// There is no automatic retry-to-completion.
func (s *ProvisioningService) Orphans(ctx context.Context) ([]ports.ProvisionFailure, error) {
	if s.ledger == nil {
		return nil, nil
	}
	failures, err := s.ledger.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list provision failures: %w", err)
	}
	return failures, nil
}

// ResolveOrphan removes a ledger entry once an operator has repaired or
// deliberately discarded the partially provisioned account.
func (s *ProvisioningService) ResolveOrphan(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("failure id is required")
	}
	if s.ledger == nil {
		return errors.New("no provisioning ledger configured")
	}
	if err := s.ledger.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete provision failure: %w", err)
	}
	s.logger.InfoContext(ctx, "provision failure resolved", "id", id)
	return nil
}

// recordFailure writes a ledger entry for a half-provisioned account and
// notifies operators. Ledger and notification failures are logged but never
// mask the provisioning error itself.
func (s *ProvisioningService) recordFailure(ctx context.Context, user ports.ProvisionedUser, group, step string, cause error) {
	s.logger.ErrorContext(ctx, "partial provisioning",
		"subject", user.Subject, "step", step, "error", cause)
	occurredAt := time.Now().UTC()
	if s.ledger != nil {
		failure := ports.ProvisionFailure{
			ID:         uuid.NewString(),
			Subject:    user.Subject,
			Email:      user.Email,
			Group:      group,
			FailedStep: step,
			Message:    cause.Error(),
			OccurredAt: occurredAt,
		}
		if err := s.ledger.Record(ctx, failure); err != nil {
			s.logger.ErrorContext(ctx, "record provision failure", "subject", user.Subject, "error", err)
		}
	}
	s.notifier.NotifyProvisionFailure(ctx, notify.ProvisionFailurePayload{
		Subject:    user.Subject,
		Email:      user.Email,
		Group:      group,
		FailedStep: step,
		Error:      cause.Error(),
		OccurredAt: occurredAt,
	})
}
