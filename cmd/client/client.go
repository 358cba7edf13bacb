// Command client is a minimal CLI that speaks the order-entry adapter's
// binary wire protocol (internal/adapter) directly over TCP: place a
// limit/market/stop order, cancel one, and print execution/error reports
// as they arrive.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fenrir-exchange/matchcore/internal/adapter"
	"github.com/fenrir-exchange/matchcore/internal/common"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "address of the order-entry adapter")
	owner := flag.String("owner", "", "user id placing the order (required)")
	action := flag.String("action", "place", "action to perform: 'place' or 'cancel'")

	symbol := flag.String("symbol", "BTC-USD", "trading symbol")
	sideStr := flag.String("side", "buy", "order side: 'buy' or 'sell'")
	typeStr := flag.String("type", "limit", "order type: 'limit', 'market', or 'stop'")
	price := flag.Float64("price", 0, "limit price (required for limit orders)")
	stopPrice := flag.Float64("stop-price", 0, "trigger price (required for stop orders)")
	qtyStr := flag.String("qty", "1.0", "quantity, or a comma-separated list to send several orders (e.g. 1.0,2.5)")
	dedupeKey := flag.String("dedupe-key", "", "optional client-supplied idempotency key")

	orderID := flag.Uint64("order-id", 0, "order id to cancel (required for -action cancel)")

	flag.Parse()

	if *owner == "" {
		fmt.Println("Error: -owner is required.")
		flag.Usage()
		os.Exit(1)
	}

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("connected to %s as %q\n", *serverAddr, *owner)

	go readReports(conn)

	side := common.Buy
	if strings.EqualFold(*sideStr, "sell") {
		side = common.Sell
	}

	var orderType common.OrderType
	switch strings.ToLower(*typeStr) {
	case "market":
		orderType = common.Market
	case "stop":
		orderType = common.Stop
	default:
		orderType = common.Limit
	}

	switch strings.ToLower(*action) {
	case "place":
		for _, qty := range parseQuantities(*qtyStr) {
			req := adapter.NewOrderRequest{
				Side:      side,
				Type:      orderType,
				Price:     toTicks(*price),
				StopPrice: toTicks(*stopPrice),
				Quantity:  toTicks(qty),
				Symbol:    common.Symbol(*symbol),
				UserID:    *owner,
				DedupeKey: *dedupeKey,
			}
			if err := sendNewOrder(conn, req); err != nil {
				log.Printf("failed to place order (qty %v): %v", qty, err)
				continue
			}
			fmt.Printf("-> sent %s %s %s qty=%v\n", strings.ToUpper(*sideStr), *typeStr, *symbol, qty)
			time.Sleep(5 * time.Millisecond)
		}
	case "cancel":
		if *orderID == 0 {
			log.Fatal("Error: -order-id is required for -action cancel")
		}
		req := adapter.CancelOrderRequest{OrderID: common.OrderID(*orderID), UserID: *owner}
		if err := sendCancelOrder(conn, req); err != nil {
			log.Printf("failed to send cancel: %v", err)
		} else {
			fmt.Printf("-> sent cancel for order %d\n", *orderID)
		}
	default:
		log.Fatalf("unknown action: %s", *action)
	}

	fmt.Println("listening for reports... (press ctrl+c to exit)")
	select {}
}

// toTicks converts a human decimal value into fixed-point ticks (1 tick
// = 10^-8), the representation the adapter's wire protocol requires.
func toTicks(v float64) common.Price {
	return common.Price(int64(v*common.TickScale + 0.5))
}

func parseQuantities(input string) []float64 {
	var out []float64
	for _, p := range strings.Split(input, ",") {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			log.Printf("warning: invalid quantity %q, skipping", p)
			continue
		}
		out = append(out, v)
	}
	return out
}

func sendNewOrder(conn net.Conn, req adapter.NewOrderRequest) error {
	symbol := []byte(req.Symbol)
	userID := []byte(req.UserID)
	dedupe := []byte(req.DedupeKey)

	body := make([]byte, 0, 1+1+8+8+8+2+2+2+len(symbol)+len(userID)+len(dedupe))
	body = append(body, byte(req.Side), byte(req.Type))
	body = appendUint64(body, uint64(req.Price))
	body = appendUint64(body, uint64(req.StopPrice))
	body = appendUint64(body, uint64(req.Quantity))
	body = appendUint16(body, uint16(len(symbol)))
	body = appendUint16(body, uint16(len(userID)))
	body = appendUint16(body, uint16(len(dedupe)))
	body = append(body, symbol...)
	body = append(body, userID...)
	body = append(body, dedupe...)

	return sendMessage(conn, adapter.NewOrder, body)
}

func sendCancelOrder(conn net.Conn, req adapter.CancelOrderRequest) error {
	userID := []byte(req.UserID)
	body := make([]byte, 0, 8+2+len(userID))
	body = appendUint64(body, uint64(req.OrderID))
	body = appendUint16(body, uint16(len(userID)))
	body = append(body, userID...)

	return sendMessage(conn, adapter.CancelOrder, body)
}

func sendMessage(conn net.Conn, typ adapter.MessageType, body []byte) error {
	msg := make([]byte, 2+len(body))
	binary.BigEndian.PutUint16(msg[0:2], uint16(typ))
	copy(msg[2:], body)
	_, err := conn.Write(msg)
	return err
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendUint16(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

// readReports decodes ExecutionReport/CancelReport/ErrorReport messages
// as the adapter sends them (internal/adapter/report.go) and prints them.
func readReports(conn net.Conn) {
	for {
		typeBuf := make([]byte, 1)
		if _, err := io.ReadFull(conn, typeBuf); err != nil {
			if err != io.EOF {
				log.Printf("connection lost: %v", err)
			}
			os.Exit(0)
		}

		switch adapter.ReportType(typeBuf[0]) {
		case adapter.ExecutionReport:
			printExecutionReport(conn)
		case adapter.CancelReport:
			printCancelReport(conn)
		case adapter.ErrorReport:
			printErrorReport(conn)
		default:
			log.Printf("unknown report type %d, closing", typeBuf[0])
			return
		}
	}
}

func printExecutionReport(conn net.Conn) {
	hdr := make([]byte, 8+1+8+8+2)
	if _, err := io.ReadFull(conn, hdr); err != nil {
		log.Printf("error reading execution report: %v", err)
		return
	}
	orderID := binary.BigEndian.Uint64(hdr[0:8])
	status := common.OrderStatus(hdr[8])
	filled := binary.BigEndian.Uint64(hdr[9:17])
	original := binary.BigEndian.Uint64(hdr[17:25])
	numTrades := binary.BigEndian.Uint16(hdr[25:27])

	fmt.Printf("\n[EXECUTION] order=%d status=%s filled=%d/%d\n", orderID, status, filled, original)

	tradeBuf := make([]byte, 40)
	for i := uint16(0); i < numTrades; i++ {
		if _, err := io.ReadFull(conn, tradeBuf); err != nil {
			log.Printf("error reading trade %d: %v", i, err)
			return
		}
		tradeID := binary.BigEndian.Uint64(tradeBuf[0:8])
		price := binary.BigEndian.Uint64(tradeBuf[8:16])
		qty := binary.BigEndian.Uint64(tradeBuf[16:24])
		maker := binary.BigEndian.Uint64(tradeBuf[24:32])
		taker := binary.BigEndian.Uint64(tradeBuf[32:40])
		fmt.Printf("  trade=%d price=%s qty=%s maker=%d taker=%d\n",
			tradeID, common.Price(price), common.Quantity(qty), maker, taker)
	}
}

func printCancelReport(conn net.Conn) {
	buf := make([]byte, 9)
	if _, err := io.ReadFull(conn, buf); err != nil {
		log.Printf("error reading cancel report: %v", err)
		return
	}
	orderID := binary.BigEndian.Uint64(buf[0:8])
	status := common.OrderStatus(buf[8])
	fmt.Printf("\n[CANCEL] order=%d status=%s\n", orderID, status)
}

func printErrorReport(conn net.Conn) {
	hdr := make([]byte, 1+2)
	if _, err := io.ReadFull(conn, hdr); err != nil {
		log.Printf("error reading error report: %v", err)
		return
	}
	kind := common.Kind(hdr[0])
	msgLen := binary.BigEndian.Uint16(hdr[1:3])
	msgBuf := make([]byte, msgLen)
	if msgLen > 0 {
		if _, err := io.ReadFull(conn, msgBuf); err != nil {
			log.Printf("error reading error message: %v", err)
			return
		}
	}
	fmt.Printf("\n[ERROR] %s: %s\n", kind, string(msgBuf))
}
