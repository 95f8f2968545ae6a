package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "picpulse/internal/errors"
)

const (
	transactionsFixture = "id_cupom;numero_celular;nome_estabelecimento;categoria_estabelecimento;tipo_cupom;bairro_estabelecimento;valor_cupom;repasse_picmoney;data;hora\n" +
		"C1;(11) 98765-4321;Padaria Sol;Alimentação;Desconto;Bela Vista;10,00;1,50;01/01/2024;930\n" +
		"C2;11 98765-4321;Padaria Sol;Alimentação;Cashback;Bela Vista;20,00;2,00;02/01/2024;14:10\n" +
		"C3;;Cine Paulista;Lazer;Desconto;Consolação;abc;0,5;32/01/2024;2500\n" +
		"C4;11912345678;Cine Paulista;Lazer\n"

	capturesFixture = "nome_loja,tipo_loja,valor_cupom,valor_compra,data_captura,celular\n" +
		"Loja A,Moda,\"10,50\",\"100,00\",03/01/2024,11987654321\n" +
		"Loja B,Moda,5.25,80,04/01/2024,\n"

	pedestriansFixture = "numero_celular\ttipo_celular\tpossui_app_picmoney\tdata\thorario\tidade\n" +
		"11987654321\tAndroid\tSim\t05/01/2024\t0815\t29\n" +
		"11911112222\tiPhone\tfalse\t06/01/2024\t18:45\tvinte\n"

	playersFixture = "celular,data_nascimento\n" +
		"11987654321,15/06/1990\n" +
		"123,01/01/2010\n" +
		",31/13/2000\n"
)

var fixtureRef = time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)

func parseFixture(t *testing.T, content string) *RawTable {
	t.Helper()
	raw, err := newTestLoader().Parse(context.Background(), []byte(content))
	require.NoError(t, err)
	return raw
}

func writeFixtures(t *testing.T, dir string) Sources {
	t.Helper()
	src := DefaultSources(dir)
	require.NoError(t, os.WriteFile(src.Transactions, []byte(transactionsFixture), 0o644))
	require.NoError(t, os.WriteFile(src.Captures, []byte(capturesFixture), 0o644))
	require.NoError(t, os.WriteFile(src.Pedestrians, []byte(pedestriansFixture), 0o644))
	require.NoError(t, os.WriteFile(src.Players, []byte(playersFixture), 0o644))
	return src
}

func TestBuildTransactions(t *testing.T) {
	table := BuildTransactions(parseFixture(t, transactionsFixture))
	rows := slices.Collect(table.All())
	require.Len(t, rows, 3)

	first := rows[0]
	assert.Equal(t, "C1", first.CouponID)
	assert.Equal(t, "11987654321", first.Phone)
	assert.Equal(t, "Alimentação", first.Category)
	assert.Equal(t, ptr(10.0), first.CouponValue)
	assert.Equal(t, ptr(1.5), first.PicMoneyShare)
	assert.Equal(t, "Segunda", first.Weekday)
	assert.Equal(t, "09:30", first.Time)
	assert.Equal(t, ptr(9), first.Hour)
	require.NotNil(t, first.DateTime)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC), *first.DateTime)

	assert.Equal(t, first.Phone, rows[1].Phone, "both spellings of the number share one key")

	broken := rows[2]
	assert.Empty(t, broken.Phone)
	assert.Nil(t, broken.CouponValue)
	assert.Nil(t, broken.Date)
	assert.Empty(t, broken.Weekday)
	assert.Nil(t, broken.Hour)
	assert.Nil(t, broken.DateTime)

	caps := table.Capabilities()
	assert.True(t, caps.Has(CapPhone|CapDateTime|CapHour|CapWeekday|CapCouponValue))
	assert.False(t, caps.Has(CapAge))

	diag := table.Diagnostics()
	assert.Equal(t, TableTransactions, diag.Table)
	assert.Equal(t, 4, diag.RowsRead)
	assert.Equal(t, 1, diag.RowsSkipped)
	assert.Equal(t, 3, diag.RowsKept)
	assert.Equal(t, 1, diag.CoercedRows)
	assert.Equal(t, map[string]int{ColCouponValue: 1, ColDate: 1, ColTime: 1}, diag.Coercions)
	assert.Equal(t, 3, diag.TotalCoercions())
	assert.Equal(t, []string{ColDate, ColTime, ColCouponValue}, diag.CoercedColumns())
	assert.Empty(t, diag.MissingCols)
}

func TestBuildTransactions_MissingColumnsSkipDerivations(t *testing.T) {
	table := BuildTransactions(parseFixture(t, "categoria_estabelecimento,data\nLazer,01/01/2024\n"))

	caps := table.Capabilities()
	assert.True(t, caps.Has(CapCategory|CapDate|CapWeekday))
	assert.False(t, caps.Has(CapTime))
	assert.False(t, caps.Has(CapDateTime))
	assert.False(t, caps.Has(CapPhone))

	row := table.At(0)
	assert.Equal(t, "Segunda", row.Weekday)
	assert.Nil(t, row.Hour)
	assert.Nil(t, row.DateTime)
	assert.Contains(t, table.Diagnostics().MissingCols, ColTime)
	assert.Contains(t, table.Diagnostics().MissingCols, ColPhone)
}

func TestBuildCaptures(t *testing.T) {
	table := BuildCaptures(parseFixture(t, capturesFixture))
	require.Equal(t, 2, table.Len())

	a := table.At(0)
	assert.Equal(t, "Loja A", a.StoreName)
	assert.Equal(t, ptr(10.5), a.CouponValue)
	assert.Equal(t, ptr(100.0), a.PurchaseValue)
	assert.Equal(t, "Quarta", a.Weekday)

	b := table.At(1)
	assert.Equal(t, ptr(5.25), b.CouponValue)
	assert.Equal(t, ptr(80.0), b.PurchaseValue)
	assert.Empty(t, b.Phone)
	assert.Zero(t, table.Diagnostics().CoercedRows)
}

func TestBuildPedestrians(t *testing.T) {
	table := BuildPedestrians(parseFixture(t, pedestriansFixture))
	require.Equal(t, 2, table.Len())

	first := table.At(0)
	assert.Equal(t, "11987654321", first.Phone)
	assert.Equal(t, "Sim", first.HasApp)
	assert.Equal(t, ptr(8), first.Hour)
	assert.Equal(t, ptr(29.0), first.Age)
	assert.Equal(t, "Sexta", first.Weekday)

	second := table.At(1)
	assert.Nil(t, second.Age)
	assert.Equal(t, ptr(18), second.Hour)
	assert.Equal(t, map[string]int{ColAge: 1}, table.Diagnostics().Coercions)
}

func TestBuildPlayers_AgeFromBirthDate(t *testing.T) {
	table := BuildPlayers(parseFixture(t, playersFixture), fixtureRef)
	require.Equal(t, 3, table.Len())

	assert.Equal(t, ptr(34.0), table.At(0).Age)
	assert.Equal(t, Bracket25To34, table.At(0).Bracket)
	assert.Equal(t, ptr(14.0), table.At(1).Age)
	assert.Equal(t, BracketUpTo17, table.At(1).Bracket)
	assert.Nil(t, table.At(2).Age)
	assert.Equal(t, AgeBracket(""), table.At(2).Bracket)

	caps := table.Capabilities()
	assert.True(t, caps.Has(CapBirthDate|CapAgeBracket))
	assert.False(t, caps.Has(CapAge))

	diag := table.Diagnostics()
	assert.Equal(t, map[string]int{ColBirthDate: 1}, diag.Coercions)
	assert.GreaterOrEqual(t, diag.InvalidPhones, 1, "a three digit key is not a valid number")
}

func TestBuildPlayers_AgeColumnWins(t *testing.T) {
	table := BuildPlayers(parseFixture(t, "celular,data_nascimento,idade\n11987654321,15/06/1990,40\n"), fixtureRef)
	assert.Equal(t, ptr(40.0), table.At(0).Age)
	assert.Equal(t, Bracket35To44, table.At(0).Bracket)
}

func TestNormalization_Idempotent(t *testing.T) {
	t.Run("transactions", func(t *testing.T) {
		once := BuildTransactions(parseFixture(t, transactionsFixture))
		twice := BuildTransactions(CanonicalTransactions(once))
		assert.Equal(t, slices.Collect(once.All()), slices.Collect(twice.All()))
		assert.Equal(t, once.Capabilities(), twice.Capabilities())
	})

	t.Run("captures", func(t *testing.T) {
		once := BuildCaptures(parseFixture(t, capturesFixture))
		twice := BuildCaptures(CanonicalCaptures(once))
		assert.Equal(t, slices.Collect(once.All()), slices.Collect(twice.All()))
		assert.Equal(t, once.Capabilities(), twice.Capabilities())
	})

	t.Run("pedestrians", func(t *testing.T) {
		once := BuildPedestrians(parseFixture(t, pedestriansFixture))
		twice := BuildPedestrians(CanonicalPedestrians(once))
		assert.Equal(t, slices.Collect(once.All()), slices.Collect(twice.All()))
		assert.Equal(t, once.Capabilities(), twice.Capabilities())
	})

	t.Run("players", func(t *testing.T) {
		once := BuildPlayers(parseFixture(t, playersFixture), fixtureRef)
		twice := BuildPlayers(CanonicalPlayers(once), fixtureRef)
		assert.Equal(t, slices.Collect(once.All()), slices.Collect(twice.All()))
		assert.Equal(t, once.Capabilities(), twice.Capabilities())
	})
}

func TestLoadAll(t *testing.T) {
	src := writeFixtures(t, t.TempDir())

	tables, err := LoadAll(context.Background(), src, Options{
		Logger:        newTestLoader().logger,
		ReferenceDate: fixtureRef,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, tables.Transactions.Len())
	assert.Equal(t, 2, tables.Captures.Len())
	assert.Equal(t, 2, tables.Pedestrians.Len())
	assert.Equal(t, 3, tables.Players.Len())

	_, ok := tables.PhoneID("11987654321")
	assert.True(t, ok)
	_, ok = tables.PhoneID("")
	assert.False(t, ok)

	assert.Equal(t, []AgeBracket{Bracket25To34}, tables.PlayerBrackets("11987654321"))
	assert.Nil(t, tables.PlayerBrackets("11900000000"))

	first, last := tables.DateRange()
	require.NotNil(t, first)
	require.NotNil(t, last)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *first)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), *last)

	diags := tables.Diagnostics()
	require.Len(t, diags, 4)
	assert.Equal(t, src.Transactions, diags[0].Path)
	assert.Equal(t, TablePlayers, diags[3].Table)
}

func TestLoadAll_MissingFileIsFatal(t *testing.T) {
	dir := t.TempDir()
	src := writeFixtures(t, dir)
	require.NoError(t, os.Remove(filepath.Join(dir, DefaultPlayersFile)))

	tables, err := LoadAll(context.Background(), src, Options{})
	require.Error(t, err)
	assert.Nil(t, tables)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrTypeStorage, appErr.Type)
	assert.Equal(t, src.Players, appErr.Fields["path"])
}

func TestTable_DiagnosticsAreCopies(t *testing.T) {
	table := BuildTransactions(parseFixture(t, transactionsFixture))
	d := table.Diagnostics()
	d.Coercions[ColDate] = 99
	assert.Equal(t, 1, table.Diagnostics().Coercions[ColDate])
}
