package opportunity

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/basisbot/internal/config"
	"github.com/web3guy0/basisbot/internal/venue"
)

func TestScanOpportunitiesFindsNegativeFundingCandidate(t *testing.T) {
	long := venue.NewPaperLongVenue(venue.DefaultPaperLongConfig())
	perp := venue.NewPaperPerpVenue(venue.DefaultPaperPerpConfig())
	detector := NewDetector(long, perp, config.DefaultRiskLimits())

	opps, err := detector.ScanOpportunities(context.Background(), decimal.NewFromFloat(3.0))

	require.NoError(t, err)
	require.NotEmpty(t, opps)
	assert.True(t, opps[0].Score.TotalExpectedAPY.GreaterThan(decimal.Zero))
}

func TestScanOpportunitiesDiscardsPositiveFunding(t *testing.T) {
	perpConfig := venue.DefaultPaperPerpConfig()
	perpConfig.FundingRate8h["SOL"] = decimal.NewFromFloat(0.001)
	long := venue.NewPaperLongVenue(venue.DefaultPaperLongConfig())
	perp := venue.NewPaperPerpVenue(perpConfig)
	detector := NewDetector(long, perp, config.DefaultRiskLimits())

	opps, err := detector.ScanOpportunities(context.Background(), decimal.NewFromFloat(3.0))

	require.NoError(t, err)
	assert.Empty(t, opps)
}
