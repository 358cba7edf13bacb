package engine

import "github.com/fenrir-exchange/matchcore/internal/common"

// submitCommand and cancelCommand are the two commands a symbol's
// matching worker accepts; both are short-lived and run to completion
// once dequeued without suspending partway through.
type submitCommand struct {
	order  *common.Order
	result chan submitResult
}

type submitResult struct {
	order  common.Order
	trades []common.Trade
	err    error
}

type cancelCommand struct {
	orderID common.OrderID
	userID  string
	result  chan cancelResult
}

type cancelResult struct {
	status common.OrderStatus
	err    error
}
