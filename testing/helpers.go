// Package testing provides fixture record and value types for embedded tests.
//
// Importing the package registers every fixture composite attribute:
//
//	Order.price          -> price_currency, price_amount
//	Order.weight         -> weight_magnitude, weight_quantity (MeasurementUnit)
//	Person.identification -> id_number, id_type
//	Reservation.time_interval -> time_interval_start_time, time_interval_end_time
package testing

import (
	"time"

	"github.com/zoobzio/embedded"
)

// Price is an amount in a currency.
type Price struct {
	Currency string
	Amount   float64
}

// MeasurementUnit is a quantity of some magnitude such as kg.
type MeasurementUnit struct {
	Magnitude string
	Quantity  float64
}

// Identification is a document number and its type.
type Identification struct {
	Number string `embed:"number"`
	Type   string `embed:"type"`
}

// TimeInterval is a span between two instants.
type TimeInterval struct {
	StartTime time.Time
	EndTime   time.Time
}

// Equal reports whether both intervals cover the same instants.
func (i TimeInterval) Equal(o TimeInterval) bool {
	return i.StartTime.Equal(o.StartTime) && i.EndTime.Equal(o.EndTime)
}

// Duration returns the interval length.
func (i TimeInterval) Duration() time.Duration {
	return i.EndTime.Sub(i.StartTime)
}

// Order has a price, a weight and a plain note column.
type Order struct {
	embedded.Row
}

// Person has an identification stored in explicitly named columns.
type Person struct {
	embedded.Row
}

// Reservation has a time interval.
type Reservation struct {
	embedded.Row
}

var (
	OrderPrice = embedded.MustEmbed[Price](embedded.For[Order](), "price", embedded.Options{
		Attrs: embedded.Attrs("currency", "amount"),
	})
	OrderWeight = embedded.MustEmbed[MeasurementUnit](embedded.For[Order](), "weight", embedded.Options{
		Attrs:     embedded.Attrs("magnitude", "quantity"),
		ClassName: "MeasurementUnit",
	})
	PersonIdentification = embedded.MustEmbed[Identification](embedded.For[Person](), "identification", embedded.Options{
		Attrs: embedded.AttrColumns{"number": "id_number", "type": "id_type"},
	})
	ReservationInterval = embedded.MustEmbed[TimeInterval](embedded.For[Reservation](), "time_interval", embedded.Options{
		Attrs: embedded.Attrs("start_time", "end_time"),
	})
)

// NewOrder returns an empty order.
func NewOrder() *Order { return &Order{} }

// NewPerson returns an empty person.
func NewPerson() *Person { return &Person{} }

// NewReservation returns an empty reservation.
func NewReservation() *Reservation { return &Reservation{} }

// Price assembles the order price.
func (o *Order) Price() (Price, error) { return OrderPrice.Get(o) }

// SetPrice accepts a Price, any value with Currency and Amount readers, or an attribute map.
func (o *Order) SetPrice(v any) error { return OrderPrice.Set(o, embedded.InputOf(v)) }

// Weight assembles the order weight.
func (o *Order) Weight() (MeasurementUnit, error) { return OrderWeight.Get(o) }

// SetWeight writes the order weight.
func (o *Order) SetWeight(v any) error { return OrderWeight.Set(o, embedded.InputOf(v)) }

// Note returns the plain note column.
func (o *Order) Note() string {
	v, _ := o.ReadColumn("note")
	s, _ := v.(string)
	return s
}

// SetNote writes the plain note column.
func (o *Order) SetNote(s string) { o.WriteColumn("note", s) }

// Identification assembles the person identification.
func (p *Person) Identification() (Identification, error) { return PersonIdentification.Get(p) }

// SetIdentification writes the person identification.
func (p *Person) SetIdentification(v any) error {
	return PersonIdentification.Set(p, embedded.InputOf(v))
}

// TimeInterval assembles the reservation interval.
func (r *Reservation) TimeInterval() (TimeInterval, error) { return ReservationInterval.Get(r) }

// SetTimeInterval writes the reservation interval.
func (r *Reservation) SetTimeInterval(v any) error {
	return ReservationInterval.Set(r, embedded.InputOf(v))
}

// Schema creates the fixture tables in SQLite.
var Schema = []string{
	`CREATE TABLE orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		price_currency TEXT,
		price_amount REAL,
		weight_magnitude TEXT,
		weight_quantity REAL,
		note TEXT
	)`,
	`CREATE TABLE people (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		id_number TEXT,
		id_type TEXT
	)`,
	`CREATE TABLE reservations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		time_interval_start_time DATETIME,
		time_interval_end_time DATETIME
	)`,
}

// Date returns a UTC instant on the given day and hour.
func Date(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}
