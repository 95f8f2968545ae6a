package dataset

import "time"

// Source column names as they appear in the CSV headers.
const (
	ColCouponID       = "id_cupom"
	ColPhoneNumber    = "numero_celular"
	ColPhone          = "celular"
	ColEstablishment  = "nome_estabelecimento"
	ColCategory       = "categoria_estabelecimento"
	ColNeighborhood   = "bairro_estabelecimento"
	ColCouponType     = "tipo_cupom"
	ColCouponValue    = "valor_cupom"
	ColPicMoneyShare  = "repasse_picmoney"
	ColDate           = "data"
	ColTime           = "hora"
	ColStoreName      = "nome_loja"
	ColStoreType      = "tipo_loja"
	ColPurchaseValue  = "valor_compra"
	ColLastCaptured   = "ultimo_valor_capturado"
	ColCaptureDate    = "data_captura"
	ColDeviceType     = "tipo_celular"
	ColHasApp         = "possui_app_picmoney"
	ColPedestrianTime = "horario"
	ColAge            = "idade"
	ColBirthDate      = "data_nascimento"
)

// Capability flags record which recognized columns a table was loaded with.
// Derived fields are only computed when every input column is present.
type Capability uint32

const (
	CapPhone Capability = 1 << iota
	CapDate
	CapTime
	CapDateTime
	CapWeekday
	CapHour
	CapAge
	CapBirthDate
	CapAgeBracket
	CapCouponValue
	CapPurchaseValue
	CapPicMoneyShare
	CapCategory
	CapCouponType
	CapNeighborhood
	CapEstablishment
	CapCouponID
	CapStoreName
	CapStoreType
	CapDeviceType
	CapHasApp
)

// Has reports whether every flag in want is set.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

// AgeBracket is one of the seven fixed age ranges. The zero value means no bracket.
type AgeBracket string

const (
	BracketUpTo17 AgeBracket = "<=17"
	Bracket18To24 AgeBracket = "18-24"
	Bracket25To34 AgeBracket = "25-34"
	Bracket35To44 AgeBracket = "35-44"
	Bracket45To54 AgeBracket = "45-54"
	Bracket55To64 AgeBracket = "55-64"
	Bracket65Plus AgeBracket = "65+"
)

// AgeBrackets lists the brackets in ascending order.
var AgeBrackets = []AgeBracket{
	BracketUpTo17,
	Bracket18To24,
	Bracket25To34,
	Bracket35To44,
	Bracket45To54,
	Bracket55To64,
	Bracket65Plus,
}

// ageEdges are the right-closed bucket edges matching AgeBrackets.
var ageEdges = []float64{0, 17, 24, 34, 44, 54, 64, 200}

// Transaction is a coupon redemption event.
// Empty strings mean the categorical value was missing.
type Transaction struct {
	CouponID      string
	Phone         string
	Establishment string
	Category      string
	CouponType    string
	Neighborhood  string
	CouponValue   *float64
	PicMoneyShare *float64
	Date          *time.Time
	Time          string
	DateTime      *time.Time
	Weekday       string
	Hour          *int
}

// ValueCapture is a captured purchase tied to a store ("massa").
type ValueCapture struct {
	StoreName     string
	StoreType     string
	Phone         string
	CouponValue   *float64
	PurchaseValue *float64
	LastCaptured  *float64
	CaptureDate   *time.Time
	Weekday       string
}

// PedestrianFlow is a foot-traffic sample.
type PedestrianFlow struct {
	Phone      string
	DeviceType string
	HasApp     string
	Age        *float64
	Date       *time.Time
	Time       string
	DateTime   *time.Time
	Weekday    string
	Hour       *int
}

// Player is a user profile.
type Player struct {
	Phone     string
	BirthDate *time.Time
	Age       *float64
	Bracket   AgeBracket
}
