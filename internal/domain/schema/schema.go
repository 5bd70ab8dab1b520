// Package schema maps the logical entity/field names the domain speaks to the
// physical table/column names of the backing ERP store. Queries are always
// built against a Resolved snapshot so a mapping refresh never changes names
// mid-request.
package schema

import (
	"context"
	"fmt"
	"strings"

	"mercatus/internal/core/apperror"
)

// Logical entity names the purchase/sale domain consumes.
const (
	EntityPurchaseLine = "purchase_line"
	EntitySaleLine     = "sale_line"
	EntityProduct      = "product"
	EntitySection      = "section"
	EntityGroup        = "group"
	EntitySubGroup     = "subgroup"
	EntityStore        = "store"
	EntityBuyer        = "buyer"
	EntityBuyerProduct = "buyer_product"
	EntityDecomposed   = "decomposition_link"
	EntityRecipe       = "production_recipe"
	EntityAssociation  = "association_link"
	EntityMarginTarget = "section_margin_target"
)

// Mapping is one entity's physical identity.
type Mapping struct {
	Table   string
	Columns map[string]string // logical field -> physical column
}

// Resolved is an immutable snapshot of the full logical-to-physical mapping,
// qualified with the store's namespace. Callers hold it for the duration of
// one request.
type Resolved struct {
	namespace string
	entities  map[string]Mapping
}

// Table returns the namespace-qualified physical table for a logical entity.
func (r *Resolved) Table(entity string) (string, error) {
	m, ok := r.entities[entity]
	if !ok {
		return "", apperror.NewConfiguration(fmt.Sprintf("no table mapping for entity %q", entity))
	}
	if r.namespace == "" {
		return m.Table, nil
	}
	return r.namespace + "." + m.Table, nil
}

// Column returns the physical column for a logical field of an entity.
func (r *Resolved) Column(entity, field string) (string, error) {
	m, ok := r.entities[entity]
	if !ok {
		return "", apperror.NewConfiguration(fmt.Sprintf("no table mapping for entity %q", entity))
	}
	col, ok := m.Columns[field]
	if !ok {
		return "", apperror.NewConfiguration(fmt.Sprintf("no column mapping for %s.%s", entity, field))
	}
	return col, nil
}

// Qualified returns table-alias-qualified column syntax for SQL builders.
func (r *Resolved) Qualified(entity, alias, field string) (string, error) {
	col, err := r.Column(entity, field)
	if err != nil {
		return "", err
	}
	return alias + "." + col, nil
}

// Resolver supplies the current mapping snapshot. Implementations may refresh
// from a configuration store in the background.
type Resolver interface {
	Resolve(ctx context.Context) (*Resolved, error)
}

// StaticResolver serves a fixed snapshot. It backs tests and deployments
// without a live mapping store.
type StaticResolver struct {
	snapshot *Resolved
}

func (s *StaticResolver) Resolve(context.Context) (*Resolved, error) {
	return s.snapshot, nil
}

// NewStatic builds a resolver over an explicit mapping set. Physical names
// are lowercased; the backing store folds unquoted identifiers.
func NewStatic(namespace string, entities map[string]Mapping) *StaticResolver {
	normalized := make(map[string]Mapping, len(entities))
	for name, m := range entities {
		cols := make(map[string]string, len(m.Columns))
		for f, c := range m.Columns {
			cols[f] = strings.ToLower(c)
		}
		normalized[name] = Mapping{Table: strings.ToLower(m.Table), Columns: cols}
	}
	return &StaticResolver{snapshot: &Resolved{
		namespace: strings.ToLower(namespace),
		entities:  normalized,
	}}
}

// NewDefault returns the resolver for the stock INTERSOLID layout.
func NewDefault() *StaticResolver {
	return NewStatic("intersolid", DefaultMappings())
}

// DefaultMappings is the stock INTERSOLID entity layout.
func DefaultMappings() map[string]Mapping {
	return map[string]Mapping{
		EntityPurchaseLine: {
			Table: "tab_nf_item",
			Columns: map[string]string{
				"document_number": "num_nf",
				"series":          "num_serie_nf",
				"partner_id":      "cod_parceiro",
				"store_id":        "cod_loja",
				"entry_date":      "dta_entrada",
				"operation":       "tipo_operacao",
				"product_id":      "cod_item",
				"quantity":        "qtd_entrada",
				"value":           "val_total",
				"fiscal_code":     "cod_cfop",
			},
		},
		EntitySaleLine: {
			Table: "tab_venda_item",
			Columns: map[string]string{
				"store_id":     "cod_loja",
				"date":         "dta_venda",
				"product_id":   "cod_item",
				"quantity":     "qtd_venda",
				"gross_value":  "val_venda",
				"repl_cost":    "val_custo_rep",
				"tax_debit":    "val_imposto_debito",
				"tax_credit":   "val_imposto_credito",
				"channel_code": "tipo_saida",
			},
		},
		EntityProduct: {
			Table: "tab_item",
			Columns: map[string]string{
				"id":            "cod_item",
				"description":   "des_item",
				"section_id":    "cod_secao",
				"group_id":      "cod_grupo",
				"subgroup_id":   "cod_sub_grupo",
				"pack_qty":      "qtd_embalagem",
				"bonus_rebate":  "flg_bonificacao",
				"stock_qty":     "qtd_estoque",
				"coverage_days": "qtd_dias_cobertura",
			},
		},
		EntitySection: {
			Table: "tab_secao",
			Columns: map[string]string{
				"id":          "cod_secao",
				"description": "des_secao",
				"margin_pct":  "pct_margem_meta",
			},
		},
		EntityGroup: {
			Table: "tab_grupo",
			Columns: map[string]string{
				"id":          "cod_grupo",
				"section_id":  "cod_secao",
				"description": "des_grupo",
			},
		},
		EntitySubGroup: {
			Table: "tab_sub_grupo",
			Columns: map[string]string{
				"id":          "cod_sub_grupo",
				"section_id":  "cod_secao",
				"group_id":    "cod_grupo",
				"description": "des_sub_grupo",
			},
		},
		EntityStore: {
			Table: "tab_loja",
			Columns: map[string]string{
				"id":          "cod_loja",
				"description": "des_loja",
			},
		},
		EntityBuyer: {
			Table: "tab_comprador",
			Columns: map[string]string{
				"id":          "cod_comprador",
				"description": "des_comprador",
			},
		},
		EntityBuyerProduct: {
			Table: "tab_comprador_item",
			Columns: map[string]string{
				"buyer_id":   "cod_comprador",
				"product_id": "cod_item",
			},
		},
		EntityDecomposed: {
			Table: "tab_item_decomposicao",
			Columns: map[string]string{
				"parent_id": "cod_item_matriz",
				"child_id":  "cod_item_filho",
				"pct":       "pct_custo",
			},
		},
		EntityRecipe: {
			Table: "tab_item_producao",
			Columns: map[string]string{
				"final_id":  "cod_item_final",
				"insumo_id": "cod_item_insumo",
				"factor":    "qtd_fator",
			},
		},
		EntityAssociation: {
			Table: "tab_item_associado",
			Columns: map[string]string{
				"sold_id": "cod_item_venda",
				"base_id": "cod_item_base",
			},
		},
		EntityMarginTarget: {
			Table: "tab_secao_loja_meta",
			Columns: map[string]string{
				"section_id": "cod_secao",
				"store_id":   "cod_loja",
				"target_pct": "pct_margem_meta",
			},
		},
	}
}
