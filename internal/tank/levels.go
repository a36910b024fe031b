// Package tank tracks fuel on hand. Levels are driven by refills and by
// sales; by default the tank warns instead of blocking sales.
package tank

import (
	"github.com/shopspring/decimal"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/apperr"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
)

var (
	defaultLowPct      = decimal.NewFromInt(20)
	defaultCriticalPct = decimal.NewFromInt(10)
	hundred            = decimal.NewFromInt(100)
)

// LowThreshold resolves the low-level threshold in litres: absolute wins,
// then percentage, then 20% of capacity.
func LowThreshold(t *model.Tank) decimal.Decimal {
	if t.LowLevelLitres != nil {
		return *t.LowLevelLitres
	}
	pct := defaultLowPct
	if t.LowLevelPercent != nil {
		pct = *t.LowLevelPercent
	}
	return t.Capacity.Mul(pct).Div(hundred)
}

// CriticalThreshold resolves the critical threshold with a 10% default.
func CriticalThreshold(t *model.Tank) decimal.Decimal {
	if t.CriticalLevelLitres != nil {
		return *t.CriticalLevelLitres
	}
	pct := defaultCriticalPct
	if t.CriticalLevelPercent != nil {
		pct = *t.CriticalLevelPercent
	}
	return t.Capacity.Mul(pct).Div(hundred)
}

// Status classifies the current level. Order matters: negative beats empty
// beats critical beats low.
func Status(t *model.Tank) model.TankStatus {
	level := t.CurrentLevel
	switch {
	case level.IsNegative():
		return model.TankNegative
	case level.IsZero():
		return model.TankEmpty
	case level.LessThanOrEqual(CriticalThreshold(t)):
		return model.TankCritical
	case level.LessThanOrEqual(LowThreshold(t)):
		return model.TankLow
	case level.GreaterThan(t.Capacity):
		return model.TankOverflow
	default:
		return model.TankNormal
	}
}

// Dispense warnings attached to readings when the tank is running down.
const (
	WarnTankLow      = "tank_low"
	WarnTankCritical = "tank_critical"
	WarnTankNegative = "tank_negative"
)

// CanDispense decides whether litres may leave the tank under its tracking
// mode. It returns advisory warnings, and an error only in strict mode when
// the result would go negative with allowNegative off.
func CanDispense(t *model.Tank, litres decimal.Decimal) ([]string, error) {
	if t == nil || t.TrackingMode == model.TrackingDisabled {
		return nil, nil
	}

	after := t.CurrentLevel.Sub(litres)
	var warnings []string
	if after.IsNegative() {
		warnings = append(warnings, WarnTankNegative)
	} else if after.LessThanOrEqual(CriticalThreshold(t)) {
		warnings = append(warnings, WarnTankCritical)
	} else if after.LessThanOrEqual(LowThreshold(t)) {
		warnings = append(warnings, WarnTankLow)
	}

	if t.TrackingMode == model.TrackingStrict && after.IsNegative() && !t.AllowNegative {
		return warnings, apperr.Newf(apperr.KindTankInsufficient,
			"tank has %s litres; dispensing %s would go negative", t.CurrentLevel, litres)
	}
	return warnings, nil
}

// SinceLastRefill is the fuel dispensed since the last recorded delivery,
// never negative. Unknown when no refill has been recorded.
func SinceLastRefill(t *model.Tank) *decimal.Decimal {
	if t.LevelAfterLastRefill == nil {
		return nil
	}
	d := t.LevelAfterLastRefill.Sub(t.CurrentLevel)
	if d.IsNegative() {
		d = decimal.Zero
	}
	return &d
}
