package engine

import "github.com/fenrir-exchange/matchcore/internal/common"

// validateSubmit runs the domain checks a submitted order must pass
// before the matcher ever sees it, independent of whatever wire-level
// validation a transport adapter already did.
func validateSubmit(o *common.Order) error {
	if o.Original <= 0 {
		return common.NewError(common.KindValidationError, "quantity must be positive")
	}
	if o.Side != common.Buy && o.Side != common.Sell {
		return common.NewError(common.KindValidationError, "unknown side")
	}
	switch o.Type {
	case common.Limit:
		if o.Price <= 0 {
			return common.NewError(common.KindValidationError, "limit order requires a positive price")
		}
	case common.Stop:
		if o.StopPrice <= 0 {
			return common.NewError(common.KindValidationError, "stop order requires a positive stop price")
		}
	case common.Market:
		// no price fields required
	default:
		return common.NewError(common.KindValidationError, "unknown order type")
	}
	return nil
}
