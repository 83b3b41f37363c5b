package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Metric is one headline figure on the dashboard.
type Metric struct {
	Label string
	Value int
}

// SampleMetrics returns the static shipment overview.
func SampleMetrics() []Metric {
	return []Metric{
		{Label: "Total Shipments", Value: 500},
		{Label: "In Transit", Value: 120},
		{Label: "Delivered", Value: 350},
		{Label: "Pending", Value: 30},
	}
}

// MonthlyDeliveries is one point of the analytics series.
type MonthlyDeliveries struct {
	Month      string
	Deliveries int
}

// SampleDeliveries returns the static deliveries-per-month series.
func SampleDeliveries() []MonthlyDeliveries {
	return []MonthlyDeliveries{
		{Month: "Jan", Deliveries: 200},
		{Month: "Feb", Deliveries: 220},
		{Month: "Mar", Deliveries: 250},
		{Month: "Apr", Deliveries: 280},
		{Month: "May", Deliveries: 300},
	}
}

// ShipmentStatus is the simulated outcome of a tracking lookup.
type ShipmentStatus struct {
	TrackingNumber string
	Status         string
	Latitude       float64
	Longitude      float64
}

// TrackingDelay is how long the simulated lookup takes.
const TrackingDelay = 2 * time.Second

// TrackShipment simulates a tracking lookup. Every shipment is reported in
// transit near San Francisco after delay.
func TrackShipment(ctx context.Context, trackingNumber string, delay time.Duration) (ShipmentStatus, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return ShipmentStatus{}, fmt.Errorf("tracking number must not be empty: %w", ErrValidation)
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ShipmentStatus{}, ctx.Err()
	case <-t.C:
	}
	return ShipmentStatus{
		TrackingNumber: trackingNumber,
		Status:         "In Transit",
		Latitude:       37.7749,
		Longitude:      -122.4194,
	}, nil
}
