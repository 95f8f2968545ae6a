package analytics

import (
	"fmt"
	"time"

	"picpulse/internal/dataset"
)

const (
	txCaps = dataset.CapCouponID | dataset.CapPhone | dataset.CapEstablishment | dataset.CapCategory |
		dataset.CapCouponType | dataset.CapNeighborhood | dataset.CapCouponValue | dataset.CapPicMoneyShare |
		dataset.CapDate | dataset.CapWeekday | dataset.CapTime | dataset.CapHour | dataset.CapDateTime
	captureCaps = dataset.CapStoreName | dataset.CapStoreType | dataset.CapPhone |
		dataset.CapCouponValue | dataset.CapPurchaseValue | dataset.CapDate | dataset.CapWeekday
	pedestrianCaps = dataset.CapPhone | dataset.CapDeviceType | dataset.CapHasApp
	playerCaps     = dataset.CapPhone | dataset.CapAge | dataset.CapAgeBracket
)

func num(v float64) *float64 { return &v }

func intp(v int) *int { return &v }

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// txn builds a transaction with derived weekday filled in.
type txn struct {
	id, phone, estab, category, ctype, hood string
	value, share                            *float64
	date                                    *time.Time
	hour                                    *int
}

func (x txn) build() dataset.Transaction {
	return dataset.Transaction{
		CouponID:      x.id,
		Phone:         x.phone,
		Establishment: x.estab,
		Category:      x.category,
		CouponType:    x.ctype,
		Neighborhood:  x.hood,
		CouponValue:   x.value,
		PicMoneyShare: x.share,
		Date:          x.date,
		Weekday:       dataset.WeekdayOf(x.date),
		Hour:          x.hour,
	}
}

func newTables(txs []txn, caps []dataset.ValueCapture, peds []dataset.PedestrianFlow, players []dataset.Player) *dataset.Tables {
	rows := make([]dataset.Transaction, len(txs))
	for i, x := range txs {
		if x.id == "" {
			x.id = fmt.Sprintf("C%d", i+1)
		}
		rows[i] = x.build()
	}
	return dataset.NewTables(
		dataset.NewTable(dataset.TableTransactions, rows, txCaps),
		dataset.NewTable(dataset.TableCaptures, caps, captureCaps),
		dataset.NewTable(dataset.TablePedestrians, peds, pedestrianCaps),
		dataset.NewTable(dataset.TablePlayers, players, playerCaps),
	)
}

func player(phone string, age *float64) dataset.Player {
	b, _ := dataset.AgeBracketOf(age)
	return dataset.Player{Phone: phone, Age: age, Bracket: b}
}
