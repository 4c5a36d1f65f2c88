package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gitzenhq/gitzen/internal/models"
	"github.com/gitzenhq/gitzen/internal/privacy"
	"github.com/gitzenhq/gitzen/internal/store"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	findingsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gitzen_findings_ingested_total",
		Help: "Findings accepted through the ingestion boundary.",
	})
	findingsCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gitzen_findings_coalesced_total",
		Help: "Duplicate finding submissions coalesced onto existing rows.",
	})
	suppressionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gitzen_false_positive_rules_total",
		Help: "Suppression rules registered.",
	})
)

// Service turns validated inputs into persisted rows. The matched secret
// text lives only on the stack inside these methods.
type Service struct {
	findings       *store.FindingRepository
	falsePositives *store.FalsePositiveRepository
	redactor       *privacy.Redactor
	logger         *zap.Logger
	now            func() time.Time
}

func NewService(findings *store.FindingRepository, falsePositives *store.FalsePositiveRepository, redactor *privacy.Redactor, logger *zap.Logger) *Service {
	if redactor == nil {
		redactor = privacy.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		findings:       findings,
		falsePositives: falsePositives,
		redactor:       redactor,
		logger:         logger,
		now:            time.Now,
	}
}

// IngestFinding validates, hashes the matched secret, and persists the
// finding. Resubmitting the same occurrence returns the existing row and
// ErrDuplicateFinding; the caller can treat that as success.
func (s *Service) IngestFinding(ctx context.Context, in *FindingInput) (*models.Finding, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	hash, err := privacy.HashSecret(in.MatchedSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	// The raw secret is not referenced past this point.
	in.MatchedSecret = ""

	severity := in.Severity
	if severity == "" {
		severity = models.SeverityMedium
	}

	finding := &models.Finding{
		ScanID:        in.ScanID,
		RepositoryID:  in.RepositoryID,
		FilePath:      in.FilePath,
		LineNumber:    in.LineNumber,
		StartColumn:   in.StartColumn,
		EndColumn:     in.EndColumn,
		SecretType:    in.SecretType,
		MatchTextHash: hash,
		RuleID:        in.RuleID,
		Entropy:       in.Entropy,
		ContextBefore: redactedPtr(s.redactor, in.ContextBefore),
		ContextAfter:  redactedPtr(s.redactor, in.ContextAfter),
		CommitSHA:     in.CommitSHA,
		CommitAuthor:  in.CommitAuthor,
		CommitDate:    in.CommitDate,
		Status:        models.FindingStatusActive,
		Severity:      severity,
	}

	created, err := s.findings.Insert(ctx, finding)
	if errors.Is(err, store.ErrDuplicate) {
		existing, getErr := s.findings.GetByOccurrence(ctx, finding.ScanID, finding.FilePath, finding.LineNumber, finding.MatchTextHash)
		if getErr != nil {
			return nil, getErr
		}
		findingsCoalesced.Inc()
		s.logger.Debug("duplicate finding coalesced",
			zap.String("finding_id", existing.ID.String()),
			zap.String("file_path", existing.FilePath),
			zap.Int("line_number", existing.LineNumber))
		return existing, ErrDuplicateFinding
	}
	if err != nil {
		return nil, err
	}

	findingsIngested.Inc()
	s.logger.Info("finding ingested",
		zap.String("finding_id", created.ID.String()),
		zap.String("secret_type", created.SecretType),
		zap.String("file_path", created.FilePath),
		zap.Int("line_number", created.LineNumber))
	return created, nil
}

// RegisterFalsePositive hashes the pattern, stores the rule, and flips
// matching active findings to false_positive in the same pass. The free
// text fields go through the redactor in case the user pasted the secret
// into the description.
func (s *Service) RegisterFalsePositive(ctx context.Context, userID uuid.UUID, in *FalsePositiveInput) (*models.FalsePositive, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	hash, err := privacy.HashPattern(in.Pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	in.Pattern = ""

	scope := models.ScopeRepository
	if in.RepositoryID == nil {
		scope = models.ScopeGlobal
	}

	rule := &models.FalsePositive{
		RepositoryID:    in.RepositoryID,
		UserID:          userID,
		SecretType:      in.SecretType,
		PatternHash:     hash,
		FilePathPattern: in.FilePathPattern,
		Description:     s.redactor.Redact(in.Description),
		Reason:          s.redactor.Redact(in.Reason),
		Scope:           scope,
	}

	created, err := s.falsePositives.Create(ctx, rule)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrDuplicateRule
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	matched, err := s.findings.MarkFalsePositives(ctx, created.RepositoryID, created.PatternHash, now)
	if err != nil {
		s.logger.Warn("suppression created but retro-marking failed",
			zap.String("rule_id", created.ID.String()), zap.Error(err))
	} else if matched > 0 {
		if err := s.falsePositives.RecordMatch(ctx, created.ID, matched, now); err != nil {
			s.logger.Warn("failed to record suppression match count",
				zap.String("rule_id", created.ID.String()), zap.Error(err))
		}
		created.TimesMatched = int(matched)
		created.LastMatchedAt = &now
	}

	suppressionsCreated.Inc()
	s.logger.Info("false positive rule registered",
		zap.String("rule_id", created.ID.String()),
		zap.String("secret_type", created.SecretType),
		zap.String("scope", string(created.Scope)),
		zap.Int64("retro_matched", matched))
	return created, nil
}

func redactedPtr(r *privacy.Redactor, s *string) *string {
	if s == nil {
		return nil
	}
	out := r.Redact(*s)
	return &out
}
