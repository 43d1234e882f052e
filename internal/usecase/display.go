package usecase

import (
	"strconv"
	"time"

	"PumpDump/internal/domain/models"
	xutil "PumpDump/pkg/util"

	"github.com/shopspring/decimal"
)

// FormatPrice renders a price as "$" with five decimals. Rounding is half up
// on the shortest decimal form of p, so 0.000045 renders as "$0.00005" even
// though its binary value sits just below the midpoint.
func FormatPrice(p float64) string {
	return "$" + decimal.NewFromFloat(p).StringFixed(5)
}

// FormatGrowth renders a percentage with two decimals and a "%" suffix.
func FormatGrowth(g float64) string {
	return decimal.NewFromFloat(g).StringFixed(2) + "%"
}

func formatPct(p int) string {
	return strconv.Itoa(p) + "%"
}

// BuildDisplay formats the simulation state for display surfaces.
func BuildDisplay(s *Simulation, now time.Time) models.Display {
	round := s.Round()
	tally := s.Tally()
	price := s.Price()
	wallet := s.Wallet()
	pump, dump := tally.Percentages()

	d := models.Display{
		Countdown:    xutil.FormatCountdown(round.RemainingSeconds),
		Price:        FormatPrice(price.Current),
		PriceValue:   price.Current,
		Growth:       FormatGrowth(price.Growth()),
		PumpPct:      formatPct(pump),
		DumpPct:      formatPct(dump),
		PumpVotes:    tally.Pump,
		DumpVotes:    tally.Dump,
		ConnectLabel: models.ConnectLabelIdle,
		Round:        round.Number,
		RoundID:      round.ID,
		Active:       round.Active,
		UpdatedAt:    now.UTC(),
	}
	if wallet.PublicKey != "" {
		d.Identity = wallet.PublicKey
		d.ConnectLabel = models.ConnectLabel(wallet.PublicKey)
		d.ConnectDisabled = true
	}
	return d
}
