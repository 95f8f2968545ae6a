package dataset

import (
	"strconv"
	"strings"
)

// field renders one canonical column of T when the table has cap.
type field[T any] struct {
	name   string
	cap    Capability
	render func(T) string
}

var transactionFields = []field[Transaction]{
	{ColCouponID, CapCouponID, func(t Transaction) string { return t.CouponID }},
	{ColPhone, CapPhone, func(t Transaction) string { return t.Phone }},
	{ColEstablishment, CapEstablishment, func(t Transaction) string { return t.Establishment }},
	{ColCategory, CapCategory, func(t Transaction) string { return t.Category }},
	{ColCouponType, CapCouponType, func(t Transaction) string { return t.CouponType }},
	{ColNeighborhood, CapNeighborhood, func(t Transaction) string { return t.Neighborhood }},
	{ColCouponValue, CapCouponValue, func(t Transaction) string { return FormatMoney(t.CouponValue) }},
	{ColPicMoneyShare, CapPicMoneyShare, func(t Transaction) string { return FormatMoney(t.PicMoneyShare) }},
	{ColDate, CapDate, func(t Transaction) string { return FormatDate(t.Date) }},
	{ColTime, CapTime, func(t Transaction) string { return t.Time }},
}

var captureFields = []field[ValueCapture]{
	{ColStoreName, CapStoreName, func(v ValueCapture) string { return v.StoreName }},
	{ColStoreType, CapStoreType, func(v ValueCapture) string { return v.StoreType }},
	{ColPhone, CapPhone, func(v ValueCapture) string { return v.Phone }},
	{ColCouponValue, CapCouponValue, func(v ValueCapture) string { return FormatMoney(v.CouponValue) }},
	{ColPurchaseValue, CapPurchaseValue, func(v ValueCapture) string { return FormatMoney(v.PurchaseValue) }},
	{ColCaptureDate, CapDate, func(v ValueCapture) string { return FormatDate(v.CaptureDate) }},
}

var pedestrianFields = []field[PedestrianFlow]{
	{ColPhone, CapPhone, func(p PedestrianFlow) string { return p.Phone }},
	{ColDeviceType, CapDeviceType, func(p PedestrianFlow) string { return p.DeviceType }},
	{ColHasApp, CapHasApp, func(p PedestrianFlow) string { return p.HasApp }},
	{ColAge, CapAge, func(p PedestrianFlow) string { return FormatNumber(p.Age) }},
	{ColDate, CapDate, func(p PedestrianFlow) string { return FormatDate(p.Date) }},
	{ColPedestrianTime, CapTime, func(p PedestrianFlow) string { return p.Time }},
}

var playerFields = []field[Player]{
	{ColPhone, CapPhone, func(p Player) string { return p.Phone }},
	{ColBirthDate, CapBirthDate, func(p Player) string { return FormatDate(p.BirthDate) }},
	{ColAge, CapAge, func(p Player) string { return FormatNumber(p.Age) }},
}

func canonical[T any](t *Table[T], fields []field[T]) *RawTable {
	out := &RawTable{Path: t.diag.Path, Separator: ','}

	var active []field[T]
	for _, f := range fields {
		if t.caps.Has(f.cap) {
			active = append(active, f)
			out.Header = append(out.Header, f.name)
		}
	}

	out.Records = make([][]string, 0, len(t.rows))
	for _, row := range t.rows {
		rec := make([]string, len(active))
		for i, f := range active {
			rec[i] = f.render(row)
		}
		out.Records = append(out.Records, rec)
	}
	out.RowsRead = len(out.Records)
	return out
}

// CanonicalTransactions renders normalized transactions back into raw form. Building from
// the result yields the same rows.
func CanonicalTransactions(t *Table[Transaction]) *RawTable {
	return canonical(t, transactionFields)
}

// CanonicalCaptures renders normalized captures back into raw form.
func CanonicalCaptures(t *Table[ValueCapture]) *RawTable {
	out := canonical(t, captureFields)
	// ultimo_valor_capturado has no capability flag; keep it whenever any row has it.
	hasLast := false
	for _, row := range t.rows {
		if row.LastCaptured != nil {
			hasLast = true
			break
		}
	}
	if hasLast {
		out.Header = append(out.Header, ColLastCaptured)
		for i, row := range t.rows {
			out.Records[i] = append(out.Records[i], FormatMoney(row.LastCaptured))
		}
	}
	return out
}

// CanonicalPedestrians renders normalized pedestrian samples back into raw form.
func CanonicalPedestrians(t *Table[PedestrianFlow]) *RawTable {
	return canonical(t, pedestrianFields)
}

// CanonicalPlayers renders normalized players back into raw form.
func CanonicalPlayers(t *Table[Player]) *RawTable {
	return canonical(t, playerFields)
}

// FormatMoney renders a monetary value with a decimal comma so ParseMoney
// reads it back unchanged.
func FormatMoney(v *float64) string {
	if v == nil {
		return ""
	}
	return strings.Replace(strconv.FormatFloat(*v, 'f', -1, 64), ".", ",", 1)
}
