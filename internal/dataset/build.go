package dataset

import (
	"strings"
	"time"
)

// colRef is a resolved column position. ok is false when the header lacks it.
type colRef struct {
	name string
	idx  int
	ok   bool
}

func (t *RawTable) ref(name string) colRef {
	idx, ok := t.Column(name)
	return colRef{name: name, idx: idx, ok: ok}
}

// phoneRef resolves the phone column. numero_celular wins over celular.
func (t *RawTable) phoneRef() colRef {
	if c := t.ref(ColPhoneNumber); c.ok {
		return c
	}
	return t.ref(ColPhone)
}

// capIf returns flag when every ref is present.
func capIf(flag Capability, refs ...colRef) Capability {
	for _, r := range refs {
		if !r.ok {
			return 0
		}
	}
	return flag
}

func missingColumns(refs ...colRef) []string {
	var missing []string
	for _, r := range refs {
		if !r.ok {
			missing = append(missing, r.name)
		}
	}
	return missing
}

// rowReader reads typed cells of one record and counts coercions.
type rowReader struct {
	rec    []string
	tr     *rowTracker
	phones *phoneValidator
}

func (r rowReader) raw(c colRef) string {
	if !c.ok || c.idx >= len(r.rec) {
		return ""
	}
	return strings.TrimSpace(r.rec[c.idx])
}

func (r rowReader) text(c colRef) string {
	v := r.raw(c)
	if isMissingToken(v) {
		return ""
	}
	return v
}

func (r rowReader) phone(c colRef) string {
	v := r.raw(c)
	key, ok := NormalizePhone(v)
	if !ok {
		r.tr.coerce(c.name, v)
		return ""
	}
	if !r.phones.Valid(key) {
		r.tr.diag.InvalidPhones++
	}
	return key
}

func (r rowReader) money(c colRef) *float64 {
	v := r.raw(c)
	f := ParseMoney(v)
	if f == nil {
		r.tr.coerce(c.name, v)
	}
	return f
}

func (r rowReader) date(c colRef) *time.Time {
	v := r.raw(c)
	d := ParseDayFirstDate(v)
	if d == nil {
		r.tr.coerce(c.name, v)
	}
	return d
}

func (r rowReader) age(c colRef) *float64 {
	v := r.raw(c)
	a := ParseAge(v)
	if a == nil {
		r.tr.coerce(c.name, v)
	}
	return a
}

// clock returns the canonical time text and counts unreadable times.
func (r rowReader) clock(c colRef) string {
	v := r.raw(c)
	if isMissingToken(v) {
		return ""
	}
	if _, _, ok := parseClock(v); !ok {
		r.tr.coerce(c.name, v)
	}
	return CanonicalTime(v)
}

// BuildTransactions normalizes the coupon transactions file.
func BuildTransactions(raw *RawTable) *Table[Transaction] {
	diag := newDiagnostics(TableTransactions, raw)
	phones := newPhoneValidator(PhoneRegion)

	var (
		id       = raw.ref(ColCouponID)
		phone    = raw.phoneRef()
		estab    = raw.ref(ColEstablishment)
		category = raw.ref(ColCategory)
		ctype    = raw.ref(ColCouponType)
		hood     = raw.ref(ColNeighborhood)
		value    = raw.ref(ColCouponValue)
		share    = raw.ref(ColPicMoneyShare)
		date     = raw.ref(ColDate)
		clock    = raw.ref(ColTime)
	)

	caps := capIf(CapCouponID, id) |
		capIf(CapPhone, phone) |
		capIf(CapEstablishment, estab) |
		capIf(CapCategory, category) |
		capIf(CapCouponType, ctype) |
		capIf(CapNeighborhood, hood) |
		capIf(CapCouponValue, value) |
		capIf(CapPicMoneyShare, share) |
		capIf(CapDate|CapWeekday, date) |
		capIf(CapTime|CapHour, clock) |
		capIf(CapDateTime, date, clock)
	if !phone.ok {
		phone.name = ColPhone
	}
	diag.MissingCols = missingColumns(id, phone, estab, category, ctype, hood, value, share, date, clock)

	rows := make([]Transaction, 0, len(raw.Records))
	tr := &rowTracker{diag: &diag}
	for _, rec := range raw.Records {
		r := rowReader{rec: rec, tr: tr, phones: phones}

		tx := Transaction{
			CouponID:      r.text(id),
			Establishment: r.text(estab),
			Category:      r.text(category),
			CouponType:    r.text(ctype),
			Neighborhood:  r.text(hood),
		}
		if caps.Has(CapPhone) {
			tx.Phone = r.phone(phone)
		}
		if caps.Has(CapCouponValue) {
			tx.CouponValue = r.money(value)
		}
		if caps.Has(CapPicMoneyShare) {
			tx.PicMoneyShare = r.money(share)
		}
		if caps.Has(CapDate) {
			tx.Date = r.date(date)
			tx.Weekday = WeekdayOf(tx.Date)
		}
		if caps.Has(CapTime) {
			tx.Time = r.clock(clock)
			tx.Hour = HourOf(tx.Time)
		}
		if caps.Has(CapDateTime) {
			tx.DateTime = CombineDateTime(tx.Date, tx.Time)
		}

		rows = append(rows, tx)
		tr.finish()
	}

	return newTable(TableTransactions, rows, caps, diag)
}

// BuildCaptures normalizes the store value-capture file.
func BuildCaptures(raw *RawTable) *Table[ValueCapture] {
	diag := newDiagnostics(TableCaptures, raw)
	phones := newPhoneValidator(PhoneRegion)

	var (
		store    = raw.ref(ColStoreName)
		stype    = raw.ref(ColStoreType)
		phone    = raw.phoneRef()
		value    = raw.ref(ColCouponValue)
		purchase = raw.ref(ColPurchaseValue)
		last     = raw.ref(ColLastCaptured)
		date     = raw.ref(ColCaptureDate)
	)

	caps := capIf(CapStoreName, store) |
		capIf(CapStoreType, stype) |
		capIf(CapPhone, phone) |
		capIf(CapCouponValue, value) |
		capIf(CapPurchaseValue, purchase) |
		capIf(CapDate|CapWeekday, date)
	if !phone.ok {
		phone.name = ColPhone
	}
	diag.MissingCols = missingColumns(store, stype, phone, value, purchase, date)

	rows := make([]ValueCapture, 0, len(raw.Records))
	tr := &rowTracker{diag: &diag}
	for _, rec := range raw.Records {
		r := rowReader{rec: rec, tr: tr, phones: phones}

		vc := ValueCapture{
			StoreName: r.text(store),
			StoreType: r.text(stype),
		}
		if caps.Has(CapPhone) {
			vc.Phone = r.phone(phone)
		}
		if caps.Has(CapCouponValue) {
			vc.CouponValue = r.money(value)
		}
		if caps.Has(CapPurchaseValue) {
			vc.PurchaseValue = r.money(purchase)
		}
		if last.ok {
			vc.LastCaptured = r.money(last)
		}
		if caps.Has(CapDate) {
			vc.CaptureDate = r.date(date)
			vc.Weekday = WeekdayOf(vc.CaptureDate)
		}

		rows = append(rows, vc)
		tr.finish()
	}

	return newTable(TableCaptures, rows, caps, diag)
}

// BuildPedestrians normalizes the foot-traffic file.
func BuildPedestrians(raw *RawTable) *Table[PedestrianFlow] {
	diag := newDiagnostics(TablePedestrians, raw)
	phones := newPhoneValidator(PhoneRegion)

	var (
		phone  = raw.phoneRef()
		device = raw.ref(ColDeviceType)
		hasApp = raw.ref(ColHasApp)
		age    = raw.ref(ColAge)
		date   = raw.ref(ColDate)
		clock  = raw.ref(ColPedestrianTime)
	)

	caps := capIf(CapPhone, phone) |
		capIf(CapDeviceType, device) |
		capIf(CapHasApp, hasApp) |
		capIf(CapAge|CapAgeBracket, age) |
		capIf(CapDate|CapWeekday, date) |
		capIf(CapTime|CapHour, clock) |
		capIf(CapDateTime, date, clock)
	if !phone.ok {
		phone.name = ColPhone
	}
	diag.MissingCols = missingColumns(phone, device, hasApp, date, clock)

	rows := make([]PedestrianFlow, 0, len(raw.Records))
	tr := &rowTracker{diag: &diag}
	for _, rec := range raw.Records {
		r := rowReader{rec: rec, tr: tr, phones: phones}

		pf := PedestrianFlow{
			DeviceType: r.text(device),
			HasApp:     r.text(hasApp),
		}
		if caps.Has(CapPhone) {
			pf.Phone = r.phone(phone)
		}
		if caps.Has(CapAge) {
			pf.Age = r.age(age)
		}
		if caps.Has(CapDate) {
			pf.Date = r.date(date)
			pf.Weekday = WeekdayOf(pf.Date)
		}
		if caps.Has(CapTime) {
			pf.Time = r.clock(clock)
			pf.Hour = HourOf(pf.Time)
		}
		if caps.Has(CapDateTime) {
			pf.DateTime = CombineDateTime(pf.Date, pf.Time)
		}

		rows = append(rows, pf)
		tr.finish()
	}

	return newTable(TablePedestrians, rows, caps, diag)
}

// BuildPlayers normalizes the player profile file. When the file has a birth
// date but no age column, age is computed at ref.
func BuildPlayers(raw *RawTable, ref time.Time) *Table[Player] {
	diag := newDiagnostics(TablePlayers, raw)
	phones := newPhoneValidator(PhoneRegion)

	var (
		phone = raw.phoneRef()
		age   = raw.ref(ColAge)
		birth = raw.ref(ColBirthDate)
	)

	caps := capIf(CapPhone, phone) |
		capIf(CapAge, age) |
		capIf(CapBirthDate, birth)
	if caps.Has(CapAge) || caps.Has(CapBirthDate) {
		caps |= CapAgeBracket
	}
	if !phone.ok {
		phone.name = ColPhone
	}
	diag.MissingCols = missingColumns(phone, age)

	rows := make([]Player, 0, len(raw.Records))
	tr := &rowTracker{diag: &diag}
	for _, rec := range raw.Records {
		r := rowReader{rec: rec, tr: tr, phones: phones}

		var p Player
		if caps.Has(CapPhone) {
			p.Phone = r.phone(phone)
		}
		if caps.Has(CapBirthDate) {
			p.BirthDate = r.date(birth)
		}
		switch {
		case caps.Has(CapAge):
			p.Age = r.age(age)
		case p.BirthDate != nil:
			p.Age = AgeFromBirthDate(*p.BirthDate, ref)
		}
		if b, ok := AgeBracketOf(p.Age); ok {
			p.Bracket = b
		}

		rows = append(rows, p)
		tr.finish()
	}

	return newTable(TablePlayers, rows, caps, diag)
}
