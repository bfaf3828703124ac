package relations

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"polymarket-relations/models"
)

// Config carries every threshold the engine consumes. It is owned by the
// caller; the engine only validates and reads it.
type Config struct {
	MinSharedMarkets        int
	MinCorrelationToPromote float64
	MinCopyScore            float64
	MinLagSamples           int
	LookbackHours           float64
	FrontRunLookbackHours   float64
	LagToleranceHours       float64
	MinFollowersForLeader   int
	MaxWorkers              int
	Weights                 Weights
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		MinSharedMarkets:        5,
		MinCorrelationToPromote: 0.4,
		MinCopyScore:            0.5,
		MinLagSamples:           3,
		LookbackHours:           48,
		FrontRunLookbackHours:   12,
		LagToleranceHours:       1,
		MinFollowersForLeader:   3,
		MaxWorkers:              8,
		Weights:                 DefaultWeights(),
	}
}

// Validate rejects structurally broken configuration before any computation.
func (c Config) Validate() error {
	switch {
	case c.MinSharedMarkets <= 0:
		return fmt.Errorf("%w: min_shared_markets must be positive", ErrInvalidConfig)
	case c.MinCorrelationToPromote < 0 || c.MinCorrelationToPromote > 1:
		return fmt.Errorf("%w: min_correlation_to_promote must be in [0,1]", ErrInvalidConfig)
	case c.MinCopyScore <= 0 || c.MinCopyScore > 1:
		return fmt.Errorf("%w: min_copy_score must be in (0,1]", ErrInvalidConfig)
	case c.MinLagSamples <= 0:
		return fmt.Errorf("%w: min_lag_samples must be positive", ErrInvalidConfig)
	case c.LookbackHours <= 0:
		return fmt.Errorf("%w: lookback_hours must be positive", ErrInvalidConfig)
	case c.FrontRunLookbackHours <= 0:
		return fmt.Errorf("%w: frontrun_lookback_hours must be positive", ErrInvalidConfig)
	case c.LagToleranceHours < 0:
		return fmt.Errorf("%w: lag_tolerance_hours must not be negative", ErrInvalidConfig)
	case c.MinFollowersForLeader <= 0:
		return fmt.Errorf("%w: min_followers_for_leader must be positive", ErrInvalidConfig)
	case c.MaxWorkers <= 0:
		return fmt.Errorf("%w: max_workers must be positive", ErrInvalidConfig)
	}
	const epsilon = 1e-9
	if diff := c.Weights.Sum() - 1; diff > epsilon || diff < -epsilon {
		return fmt.Errorf("%w: copy score weights must sum to 1, got %.4f", ErrInvalidConfig, c.Weights.Sum())
	}
	return nil
}

// Engine runs the full pairwise relationship analysis over one immutable
// trade snapshot: index, correlate, lag-match, copy-score, classify, scan.
type Engine struct {
	cfg        Config
	correlator *Correlator
	scorer     *CopyScorer
	classifier *Classifier
	detector   *FrontRunDetector
}

// NewEngine validates cfg and wires the pipeline stages. markets may be nil.
func NewEngine(cfg Config, markets MarketLookup) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:        cfg,
		correlator: NewCorrelator(cfg.MinSharedMarkets),
		scorer:     NewCopyScorer(cfg.Weights, cfg.MinLagSamples),
		classifier: NewClassifier(cfg.MinCopyScore, cfg.MinFollowersForLeader),
		detector: NewFrontRunDetector(
			time.Duration(cfg.FrontRunLookbackHours*float64(time.Hour)),
			time.Duration(cfg.LagToleranceHours*float64(time.Hour)),
			cfg.MinFollowersForLeader,
			markets,
		),
	}, nil
}

// pairResult is one worker's output slot. Workers never touch shared state:
// each writes only its own slot, so the parallel phase needs no locks.
type pairResult struct {
	correlation models.PairCorrelation
	promoted    bool
	edges       []models.RelationshipEdge
}

// Run executes one analysis pass. Pair scoring is embarrassingly parallel and
// fans out across workers; classification and the front-run scan wait behind
// the barrier so roles always come from a complete pair-score set. If ctx is
// cancelled, all partial results are discarded and Run returns the error.
func (e *Engine) Run(ctx context.Context, records []models.TradeRecord, now time.Time) (*models.Report, error) {
	started := time.Now()

	idx := BuildIndex(records)
	traders := idx.Traders()
	if skipped := len(idx.Skipped()); skipped > 0 {
		log.Printf("[engine] skipped %d malformed trade records", skipped)
	}

	type pair struct{ a, b string }
	var pairs []pair
	for i := 0; i < len(traders); i++ {
		for j := i + 1; j < len(traders); j++ {
			pairs = append(pairs, pair{traders[i], traders[j]})
		}
	}

	results := make([]pairResult, len(pairs))
	lookback := time.Duration(e.cfg.LookbackHours * float64(time.Hour))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxWorkers)
	for i := range pairs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p := pairs[i]
			res := &results[i]

			corr, err := e.correlator.Score(p.a, p.b, idx)
			if err != nil {
				// Below the shared-market minimum: excluded, not zero.
				return nil
			}
			res.correlation = corr
			if corr.Score < e.cfg.MinCorrelationToPromote {
				return nil
			}
			res.promoted = true

			// Test both directions; copying is directional evidence.
			for _, dir := range [][2]string{{p.a, p.b}, {p.b, p.a}} {
				leader, follower := dir[0], dir[1]
				shared := idx.SharedMarkets(leader, follower)
				samples := MatchLagSamples(shared, lookback)
				edge, err := e.scorer.Score(leader, follower, samples, shared)
				if err != nil {
					continue // insufficient samples, not a zero score
				}
				res.edges = append(res.edges, edge)
			}
			return nil
		})
	}

	// Barrier: classification never sees a partial pair-score set.
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("engine: pair scoring aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("engine: cancelled before classification: %w", err)
	}

	var correlations []models.PairCorrelation
	var edges []models.RelationshipEdge
	promoted := 0
	for i := range results {
		if results[i].correlation.SharedMarkets > 0 {
			correlations = append(correlations, results[i].correlation)
		}
		if results[i].promoted {
			promoted++
		}
		edges = append(edges, results[i].edges...)
	}

	roles := e.classifier.Classify(edges, traders)
	qualified := e.classifier.QualifyingEdges(edges)
	sortEdges(qualified)
	sortCorrelations(correlations)

	opportunities := e.detector.Detect(ctx, idx, qualified, roles, now)
	network := e.classifier.NetworkStats(roles, edges)

	report := &models.Report{
		Edges:         qualified,
		Roles:         roles,
		Opportunities: opportunities,
		Correlations:  correlations,
		Network:       network,
		Summary: models.RunSummary{
			GeneratedAt:    now,
			Traders:        len(traders),
			TradesLoaded:   idx.Loaded(),
			SkippedRecords: len(idx.Skipped()),
			PairsScreened:  len(pairs),
			PairsPromoted:  promoted,
			EdgesScored:    len(edges),
			EdgesQualified: len(qualified),
			Opportunities:  len(opportunities),
			Duration:       time.Since(started),
		},
	}

	log.Printf("[engine] analyzed %d traders, %d pairs (%d promoted): %d edges, %d opportunities in %v",
		len(traders), len(pairs), promoted, len(qualified), len(opportunities), report.Summary.Duration)

	return report, nil
}

// sortEdges orders edges by copy score descending, ties broken by follower
// then leader ascending so identical snapshots produce identical output.
func sortEdges(edges []models.RelationshipEdge) {
	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].CopyScore != edges[j].CopyScore {
			return edges[i].CopyScore > edges[j].CopyScore
		}
		if edges[i].Follower != edges[j].Follower {
			return edges[i].Follower < edges[j].Follower
		}
		return edges[i].Leader < edges[j].Leader
	})
}

func sortCorrelations(correlations []models.PairCorrelation) {
	sort.SliceStable(correlations, func(i, j int) bool {
		if correlations[i].Score != correlations[j].Score {
			return correlations[i].Score > correlations[j].Score
		}
		if correlations[i].TraderA != correlations[j].TraderA {
			return correlations[i].TraderA < correlations[j].TraderA
		}
		return correlations[i].TraderB < correlations[j].TraderB
	})
}
