package adapter

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/tomb.v2"

	"github.com/fenrir-exchange/matchcore/internal/common"
	"github.com/fenrir-exchange/matchcore/internal/pool"
)

const (
	defaultWorkers     = 32
	maxMessageSize     = 4 * 1024
	connIdleTimeout    = 5 * time.Minute
)

// Engine is the subset of the matching engine the order-entry protocol
// needs. internal/engine.Engine satisfies this structurally.
type Engine interface {
	Submit(ctx context.Context, o common.Order) (common.Order, []common.Trade, error)
	Cancel(ctx context.Context, userID string, orderID common.OrderID) (common.OrderStatus, error)
}

// Server is the binary TCP order-entry listener.
type Server struct {
	address string
	port    int
	engine  Engine
	pool    *pool.Pool
}

// New creates a Server bound to address:port, forwarding parsed requests
// to eng.
func New(address string, port int, eng Engine) *Server {
	return &Server{
		address: address,
		port:    port,
		engine:  eng,
		pool:    pool.New(defaultWorkers),
	}
}

// Run accepts connections until t is killed.
func (s *Server) Run(t *tomb.Tomb) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(context.Background(), "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	t.Go(func() error {
		<-t.Dying()
		return listener.Close()
	})

	s.pool.Start(t)

	log.Info().Str("address", listener.Addr().String()).Msg("order-entry server listening")
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-t.Dying():
				return nil
			default:
				log.Error().Err(err).Msg("accept failed")
				continue
			}
		}
		s.pool.Submit(func() error {
			s.handleConn(t, conn)
			return nil
		})
	}
}

func (s *Server) handleConn(t *tomb.Tomb, conn net.Conn) {
	defer conn.Close()
	buf := make([]byte, maxMessageSize)

	for {
		select {
		case <-t.Dying():
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(connIdleTimeout))
		n, err := conn.Read(buf)
		if err != nil {
			return
		}

		typ, req, err := ParseMessage(buf[:n])
		if err != nil {
			conn.Write(SerializeErrorReport(err))
			continue
		}

		switch typ {
		case Heartbeat:
			continue
		case NewOrder:
			s.handleNewOrder(conn, req.(NewOrderRequest))
		case CancelOrder:
			s.handleCancelOrder(conn, req.(CancelOrderRequest))
		}
	}
}

func (s *Server) handleNewOrder(conn net.Conn, req NewOrderRequest) {
	order := common.Order{
		UserID:    req.UserID,
		Symbol:    req.Symbol,
		Side:      req.Side,
		Type:      req.Type,
		Price:     req.Price,
		StopPrice: req.StopPrice,
		Original:  req.Quantity,
		DedupeKey: req.DedupeKey,
	}
	result, trades, err := s.engine.Submit(context.Background(), order)
	if err != nil && result.ID == 0 {
		conn.Write(SerializeErrorReport(err))
		return
	}
	conn.Write(SerializeExecutionReport(result, trades))
}

func (s *Server) handleCancelOrder(conn net.Conn, req CancelOrderRequest) {
	status, err := s.engine.Cancel(context.Background(), req.UserID, req.OrderID)
	if err != nil {
		conn.Write(SerializeErrorReport(err))
		return
	}
	conn.Write(SerializeCancelReport(req.OrderID, status))
}
