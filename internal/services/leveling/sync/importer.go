package sync

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/chatrhq/chatr/internal/platform/errors"
	"github.com/chatrhq/chatr/internal/services/leveling/domain"
	"github.com/chatrhq/chatr/internal/services/leveling/storage"
)

// Writer is the subset of the member store the importer needs.
type Writer interface {
	UpsertMember(ctx context.Context, member storage.Member) error
}

// Result reports the outcome of a completed or aborted sync run. Imported
// counts records already written when the run ended, so a partial failure
// still tells the operator how far it got.
type Result struct {
	Source   string
	Pages    int
	Imported int
}

// Importer pulls full leaderboards from external providers and replaces the
// local records. Sync is authoritative: each remote record overwrites the
// member's XP and derived fields wholesale.
type Importer struct {
	writer Writer
	curve  domain.Curve
	clock  func() time.Time
	tracer trace.Tracer
}

// NewImporter constructs a sync importer.
func NewImporter(writer Writer, curve domain.Curve, clock func() time.Time) *Importer {
	if curve == nil {
		curve = domain.QuadraticCurve{}
	}
	if clock == nil {
		clock = time.Now
	}
	return &Importer{
		writer: writer,
		curve:  curve,
		clock:  clock,
		tracer: otel.Tracer("chatr/sync"),
	}
}

// Run fetches every page of the community's leaderboard from the source and
// upserts each record. The whole leaderboard is fetched before any write so
// a provider failing halfway through pagination never leaves a half-replaced
// leaderboard behind.
func (i *Importer) Run(ctx context.Context, communityID string, source Source) (Result, error) {
	ctx, span := i.tracer.Start(ctx, "sync.run", trace.WithAttributes(
		attribute.String("sync.source", source.Name),
		attribute.String("sync.community", communityID),
	))
	defer span.End()

	result := Result{Source: source.Name}

	var records []Record
	page := source.FirstPage
	for {
		if err := ctx.Err(); err != nil {
			return result, apperrors.Wrap(apperrors.CodeSyncTransportFailure, "sync cancelled", err)
		}
		fetched, err := source.FetchPage(ctx, communityID, page)
		if err != nil {
			return result, err
		}
		result.Pages++
		records = append(records, fetched.Records...)
		if !source.Pagination.More(fetched, result.Pages) {
			break
		}
		page++
	}

	if len(records) == 0 {
		return result, apperrors.WithMetadata(apperrors.CodeSyncSourceEmpty, "source returned no members", map[string]string{
			"source":    source.Name,
			"community": communityID,
		})
	}

	now := i.clock()
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return result, apperrors.Wrap(apperrors.CodeSyncTransportFailure, "sync cancelled", err)
		}
		stats := domain.ComputeStats(i.curve, record.XP)
		member := storage.Member{
			CommunityID: communityID,
			MemberID:    record.ExternalID,
			XP:          record.XP,
			Level:       stats.Level,
			XPNeeded:    stats.XPNeeded,
			Progress:    stats.Progress,
			DisplayName: record.Username,
			Nickname:    record.Nickname,
			AvatarURL:   record.AvatarURL,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := i.writer.UpsertMember(ctx, member); err != nil {
			return result, apperrors.Wrap(apperrors.CodeStorageFailure, "write imported member", err)
		}
		result.Imported++
	}

	span.SetAttributes(
		attribute.Int("sync.pages", result.Pages),
		attribute.Int("sync.imported", result.Imported),
	)
	return result, nil
}
