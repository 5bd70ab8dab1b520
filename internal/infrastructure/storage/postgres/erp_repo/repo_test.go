package erp_repo

import (
	"context"
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercatus/internal/domain/schema"
)

func TestSelectAliasedUsesLogicalNames(t *testing.T) {
	resolved, err := schema.NewDefault().Resolve(context.Background())
	require.NoError(t, err)

	cols, err := selectAliased(resolved, schema.EntityPurchaseLine, "product_id", "fiscal_code")
	require.NoError(t, err)
	assert.Equal(t, []string{"cod_item AS product_id", "cod_cfop AS fiscal_code"}, cols)
}

func TestSelectAliasedUnknownFieldFails(t *testing.T) {
	resolved, err := schema.NewDefault().Resolve(context.Background())
	require.NoError(t, err)

	_, err = selectAliased(resolved, schema.EntityPurchaseLine, "no_such_field")
	assert.Error(t, err)
}

func TestPurchaseLineQueryShape(t *testing.T) {
	repo := NewRepo(nil, schema.NewDefault())

	qb, resolved, err := repo.selectFrom(context.Background(), schema.EntityPurchaseLine, "product_id", "value")
	require.NoError(t, err)

	entryDate, err := resolved.Column(schema.EntityPurchaseLine, "entry_date")
	require.NoError(t, err)
	qb = qb.Where(squirrel.GtOrEq{entryDate: "2026-03-01"})

	sql, args, err := qb.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "FROM intersolid.tab_nf_item")
	assert.Contains(t, sql, "cod_item AS product_id")
	assert.Contains(t, sql, "dta_entrada >= $1")
	assert.Len(t, args, 1)
}
