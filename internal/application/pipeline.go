package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"txledger/internal/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type RecordFetcher interface {
	Fetch(ctx context.Context, hash domain.TransactionHash) (RawRecord, error)
}

type PriceProvider interface {
	CurrentUnitPriceUSD(ctx context.Context) decimal.Decimal
}

type Ledger interface {
	IsConnected() bool
	CheckDuplicate(ctx context.Context, hash domain.TransactionHash) (bool, error)
	LogTransaction(ctx context.Context, record domain.CanonicalRecord, callerID string) (string, error)
	Stats(ctx context.Context) (domain.LedgerStats, bool)
}

type PipelineObserver interface {
	OnResult(kind ResultKind)
}

// Pipeline turns operator triggers into results: parse, fetch, normalize, and log.
type Pipeline struct {
	parser     *CommandParser
	fetcher    RecordFetcher
	prices     PriceProvider
	normalizer *Normalizer
	ledger     Ledger
	observer   PipelineObserver
}

func NewPipeline(parser *CommandParser, fetcher RecordFetcher, prices PriceProvider, normalizer *Normalizer, ledger Ledger, observer PipelineObserver) (*Pipeline, error) {
	if parser == nil || fetcher == nil || prices == nil || ledger == nil {
		return nil, errors.New("pipeline dependencies must not be nil")
	}
	if normalizer == nil {
		normalizer = NewNormalizer("")
	}
	return &Pipeline{
		parser:     parser,
		fetcher:    fetcher,
		prices:     prices,
		normalizer: normalizer,
		ledger:     ledger,
		observer:   observer,
	}, nil
}

func (p *Pipeline) Parser() *CommandParser {
	return p.parser
}

func (p *Pipeline) HandleTrigger(ctx context.Context, rawText, callerID string) Result {
	ctx, span := startSpan(ctx, "pipeline.handle_trigger")
	defer span.End()

	parsed := p.parser.Parse(rawText)
	span.SetAttributes(attribute.String("command", parsed.Command.String()))

	var result Result
	switch {
	case parsed.Command == CommandNone:
		kind := ResultIgnored
		if p.parser.MentionsKeyword(rawText) {
			kind = ResultCommandHint
		}
		result = Result{Kind: kind, LedgerAvailable: p.ledger.IsConnected()}
	case parsed.Command == CommandHelp:
		result = Result{Kind: ResultHelp, Command: CommandHelp, LedgerAvailable: p.ledger.IsConnected()}
	case !parsed.HasHash():
		result = Result{Kind: ResultUsageError, Command: parsed.Command, LedgerAvailable: p.ledger.IsConnected()}
	case parsed.Command == CommandLog:
		result = p.Log(ctx, parsed.Hash, callerID)
	default:
		result = p.Analyze(ctx, parsed.Command, parsed.Hash)
	}

	if result.Hash != "" {
		span.SetAttributes(attribute.String("tx.hash", result.Hash.String()))
	}
	span.SetAttributes(attribute.String("result.kind", string(result.Kind)))
	if result.Failed() && result.Err != nil {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, result.Err.Error())
	}
	if p.observer != nil {
		p.observer.OnResult(result.Kind)
	}
	return result
}

// Analyze looks the hash up without writing to the ledger.
func (p *Pipeline) Analyze(ctx context.Context, command Command, hash domain.TransactionHash) Result {
	record, err := p.LookupRecord(ctx, hash)
	if err != nil {
		return p.failure(command, hash, err)
	}
	return Result{
		Kind:            ResultAnalysis,
		Command:         command,
		Hash:            hash,
		Record:          &record,
		LedgerAvailable: p.ledger.IsConnected(),
	}
}

func (p *Pipeline) Log(ctx context.Context, hash domain.TransactionHash, callerID string) Result {
	if !p.ledger.IsConnected() {
		return Result{Kind: ResultStoreUnavailable, Command: CommandLog, Hash: hash, Err: ErrStoreNotConnected}
	}
	record, err := p.LookupRecord(ctx, hash)
	if err != nil {
		return p.failure(CommandLog, hash, err)
	}
	return p.Append(ctx, record, callerID)
}

// Append writes an already normalized record and reports the ledger size.
func (p *Pipeline) Append(ctx context.Context, record domain.CanonicalRecord, callerID string) Result {
	ctx, span := startSpan(ctx, "pipeline.append", attribute.String("tx.hash", record.Hash.String()))
	defer span.End()

	message, err := p.ledger.LogTransaction(ctx, record, callerID)
	if err != nil {
		span.RecordError(err)
		return p.failure(CommandLog, record.Hash, err)
	}

	result := Result{
		Kind:            ResultLogged,
		Command:         CommandLog,
		Hash:            record.Hash,
		Record:          &record,
		Message:         message,
		TotalCount:      -1,
		LedgerAvailable: true,
	}
	if stats, ok := p.ledger.Stats(ctx); ok {
		result.TotalCount = stats.TotalTransactions
		result.Stats = &stats
	}
	return result
}

// LookupRecord fetches and normalizes one transaction. Errors are *FetchError
// values, or domain.ErrInvalidHash when called with an unvalidated hash.
func (p *Pipeline) LookupRecord(ctx context.Context, hash domain.TransactionHash) (domain.CanonicalRecord, error) {
	if !domain.IsValidHash(hash.String()) {
		return domain.CanonicalRecord{}, fmt.Errorf("%w: lookup called with %q", domain.ErrInvalidHash, hash)
	}
	ctx, span := startSpan(ctx, "pipeline.lookup", attribute.String("tx.hash", hash.String()))
	defer span.End()

	raw, err := p.fetcher.Fetch(ctx, hash)
	if err != nil {
		span.RecordError(err)
		slog.Warn("transaction fetch failed", "hash", hash.Short(), "err", err)
		return domain.CanonicalRecord{}, err
	}
	price := p.prices.CurrentUnitPriceUSD(ctx)
	return p.normalizer.Normalize(raw, hash, price), nil
}

func (p *Pipeline) failure(command Command, hash domain.TransactionHash, err error) Result {
	result := Result{Command: command, Hash: hash, Err: err, Detail: err.Error(), LedgerAvailable: p.ledger.IsConnected()}
	var fetchErr *FetchError
	switch {
	case errors.Is(err, ErrNotFound):
		result.Kind = ResultNotFound
	case errors.As(err, &fetchErr):
		result.Kind = ResultUpstreamError
		if fetchErr.Message != "" {
			result.Detail = fetchErr.Message
		}
	case errors.Is(err, ErrDuplicateHash):
		result.Kind = ResultDuplicate
		result.Detail = ""
	case errors.Is(err, ErrStoreNotConnected):
		result.Kind = ResultStoreUnavailable
	case errors.Is(err, domain.ErrInvalidHash):
		result.Kind = ResultUsageError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		result.Kind = ResultUpstreamError
	default:
		result.Kind = ResultLogFailed
		slog.Error("ledger append failed", "hash", hash.Short(), "err", err)
	}
	return result
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer("txledger/pipeline").Start(ctx, name, trace.WithAttributes(attrs...))
}
