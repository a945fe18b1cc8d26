package utils

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"vwapReversionBot/internal/domain"
)

// WriteTradesToCSV exports trade records using the trade log's column layout.
func WriteTradesToCSV(records []*domain.TradeRecord, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	writer.Write([]string{"id", "timestamp", "symbol", "side", "price", "qty", "status", "order_id", "stop_loss", "take_profit", "reason"})

	for _, rec := range records {
		writer.Write([]string{
			strconv.FormatInt(rec.ID, 10),
			rec.Timestamp.Format(time.RFC3339),
			rec.Symbol,
			string(rec.Side),
			strconv.FormatFloat(rec.Price, 'f', -1, 64),
			strconv.FormatFloat(rec.Quantity, 'f', -1, 64),
			string(rec.Status),
			rec.OrderID,
			formatOptionalFloat(rec.StopLoss),
			formatOptionalFloat(rec.TakeProfit),
			rec.Reason,
		})
	}
	return writer.Error()
}

// WriteBarsToCSV exports OHLCV bars, one row per bar.
func WriteBarsToCSV(bars []domain.Bar, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	writer.Write([]string{"timestamp", "symbol", "timeframe", "open", "high", "low", "close", "volume"})

	for _, b := range bars {
		writer.Write([]string{
			b.Timestamp.Format(time.RFC3339),
			b.Symbol,
			string(b.Timeframe),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		})
	}
	return writer.Error()
}

func formatOptionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
