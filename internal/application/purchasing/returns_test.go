package purchasing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/bc-sync-api/internal/application/dto"
	"github.com/jhoicas/bc-sync-api/internal/domain"
	"github.com/jhoicas/bc-sync-api/internal/domain/entity"
	"github.com/jhoicas/bc-sync-api/internal/domain/erp"
)

// expedied pedido expedido con A=10 y B=5 acreditados.
func (f *fixture) expedied(t *testing.T) int64 {
	t.Helper()
	orderID, _ := f.submitted(t, lineSpec{productA, "10"}, lineSpec{productB, "5"})
	_, err := f.uc.MarkAsExpedie(context.Background(), orderID, operator)
	require.NoError(t, err)
	return orderID
}

func returnOf(product int64, qty string) dto.CreateReturnRequest {
	return dto.CreateReturnRequest{
		Reason: "casse",
		Lines:  []dto.ReturnLineRequest{{ProductID: product, Quantity: dec(qty)}},
	}
}

func TestCreateReturn_DebitsStockAndMirrorsCreditMemo(t *testing.T) {
	f := newFixture()
	orderID := f.expedied(t)

	ret, err := f.uc.CreateReturn(context.Background(), orderID, returnOf(productA, "4"), operator)

	require.NoError(t, err)
	assert.Equal(t, "cm-guid-1", ret.BCCreditMemoID)
	assert.Equal(t, "CM-1", ret.BCCreditMemoNo)
	require.Len(t, ret.Lines, 1)

	require.Len(t, f.gw.memoLines, 1)
	assert.Equal(t, "1000", f.gw.memoLines[0].ItemNumber)
	assert.True(t, f.gw.memoLines[0].Quantity.Equal(dec("4")))

	assert.True(t, f.store.stockOf(productA, spID).Equal(dec("6")))
	var sorties []entity.StockTransaction
	for _, tx := range f.store.transactions() {
		if tx.Type == entity.StockTransactionSortie {
			sorties = append(sorties, tx)
		}
	}
	require.Len(t, sorties, 1)
	assert.Equal(t, entity.StockSource{Type: entity.SourceReturnInvoice, ID: ret.ID}, sorties[0].Source)
}

func TestCreateReturn_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   dto.CreateReturnRequest
		want error
	}{
		{"supera lo acreditado", returnOf(productA, "11"), domain.ErrQuantityExceedsOrdered},
		{"producto ajeno al pedido", returnOf(productNoBC, "1"), domain.ErrInvalidInput},
		{"cantidad cero", returnOf(productA, "0"), domain.ErrInvalidInput},
		{"sin líneas", dto.CreateReturnRequest{}, domain.ErrInvalidInput},
		{"suma de líneas repetidas", dto.CreateReturnRequest{Lines: []dto.ReturnLineRequest{
			{ProductID: productB, Quantity: dec("3")},
			{ProductID: productB, Quantity: dec("3")},
		}}, domain.ErrQuantityExceedsOrdered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			orderID := f.expedied(t)
			calls := f.gw.callCount()

			_, err := f.uc.CreateReturn(context.Background(), orderID, tt.in, operator)

			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, calls, f.gw.callCount(), "sin llamadas al ERP")
		})
	}
}

func TestCreateReturn_RequiresExpedie(t *testing.T) {
	f := newFixture()
	orderID, _ := f.submitted(t, lineSpec{productA, "10"})

	_, err := f.uc.CreateReturn(context.Background(), orderID, returnOf(productA, "1"), operator)

	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCreateReturn_OnlyOnePerOrder(t *testing.T) {
	f := newFixture()
	orderID := f.expedied(t)
	_, err := f.uc.CreateReturn(context.Background(), orderID, returnOf(productA, "1"), operator)
	require.NoError(t, err)

	_, err = f.uc.CreateReturn(context.Background(), orderID, returnOf(productB, "1"), operator)

	assert.ErrorIs(t, err, domain.ErrDuplicate)
	assert.True(t, f.store.stockOf(productB, spID).Equal(dec("5")))
}

func TestCreateReturn_MemoLineFailureKeepsStock(t *testing.T) {
	f := newFixture()
	orderID := f.expedied(t)
	f.gw.memoLineErr = &erp.APIError{StatusCode: 400, Body: "Item blocked"}

	_, err := f.uc.CreateReturn(context.Background(), orderID, returnOf(productA, "2"), operator)

	assert.ErrorIs(t, err, erp.ErrBadRequest)
	assert.True(t, f.store.stockOf(productA, spID).Equal(dec("10")))
	ret, _ := (&memReturns{f.store}).GetByPurchaseOrderID(context.Background(), orderID)
	assert.Nil(t, ret)
}
