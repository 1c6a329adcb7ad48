package businesscentral

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/text/cases"

	"github.com/jhoicas/bc-sync-api/internal/domain/erp"
)

type companyDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// ResolveCompany devuelve la empresa destino y la cachea tras el primer éxito.
//
// Con CompanyID configurado no hay llamada de red. Si no, se sondean los entornos
// [configurado, Production, Sandbox, Development, Test] (sin repetir) hasta encontrar
// una empresa cuyo name o displayName coincida con CompanyName; sin nombre se toma la
// primera. Un 404/400 sobre un entorno significa "no existe aquí" y se pasa al siguiente.
func (c *Client) ResolveCompany(ctx context.Context) (*erp.Company, error) {
	if err := c.checkCredentials(); err != nil {
		return nil, err
	}
	if cached := c.cachedCompany(); cached != nil {
		return cached, nil
	}

	// Las llamadas concurrentes comparten un único sondeo y el mutex no se retiene
	// durante la red. La cancelación de quien lo inicia no se propaga al resto;
	// cada intento sigue acotado por su propio timeout.
	resolveCtx := context.WithoutCancel(ctx)
	v, err, _ := c.resolving.Do("company", func() (any, error) {
		if cached := c.cachedCompany(); cached != nil {
			return cached, nil
		}
		company, err := c.resolveCompany(resolveCtx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.company = company
		c.mu.Unlock()
		return company, nil
	})
	if err != nil {
		return nil, err
	}
	cp := *v.(*erp.Company)
	return &cp, nil
}

func (c *Client) cachedCompany() *erp.Company {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.company == nil {
		return nil
	}
	cp := *c.company
	return &cp
}

func (c *Client) resolveCompany(ctx context.Context) (*erp.Company, error) {
	if id := strings.TrimSpace(c.cfg.CompanyID); id != "" {
		return &erp.Company{ID: id, Name: c.cfg.CompanyName, Environment: c.cfg.Environment}, nil
	}

	var tried []string
	for _, env := range c.environments() {
		companies, err := c.listCompanies(ctx, env)
		if err != nil {
			if errors.Is(err, erp.ErrNotFound) || errors.Is(err, erp.ErrBadRequest) {
				c.log.Debug().Str("environment", env).Err(err).Msg("entorno sin acceso o inexistente, probando el siguiente")
				tried = append(tried, env)
				continue
			}
			return nil, err
		}
		if match := matchCompany(companies, c.cfg.CompanyName); match != nil {
			company := &erp.Company{ID: match.ID, Name: firstNonEmpty(match.Name, match.DisplayName), Environment: env}
			c.log.Info().
				Str("company_id", company.ID).Str("company", company.Name).Str("environment", env).
				Msg("empresa de Business Central resuelta")
			return company, nil
		}
		tried = append(tried, env)
	}
	return nil, fmt.Errorf("%w: empresa %q no encontrada en los entornos %s",
		erp.ErrNotFound, c.cfg.CompanyName, strings.Join(tried, ", "))
}

func (c *Client) listCompanies(ctx context.Context, env string) ([]companyDTO, error) {
	resp, err := c.do(ctx, http.MethodGet, c.environmentURL(env)+"/companies", nil, nil)
	if err != nil {
		return nil, err
	}
	var out collection[companyDTO]
	if err := decodeJSON(resp.body, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

// environments orden de sondeo sin duplicados (comparación sin mayúsculas).
func (c *Client) environments() []string {
	candidates := append([]string{c.cfg.Environment}, fallbackEnvironments...)
	out := make([]string, 0, len(candidates))
	for _, env := range candidates {
		env = strings.TrimSpace(env)
		if env == "" {
			continue
		}
		dup := false
		for _, seen := range out {
			if strings.EqualFold(seen, env) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, env)
		}
	}
	return out
}

// matchCompany busca por name o displayName con plegado de mayúsculas Unicode.
func matchCompany(companies []companyDTO, name string) *companyDTO {
	if len(companies) == 0 {
		return nil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return &companies[0]
	}
	fold := cases.Fold()
	want := fold.String(name)
	for i := range companies {
		if fold.String(strings.TrimSpace(companies[i].Name)) == want ||
			fold.String(strings.TrimSpace(companies[i].DisplayName)) == want {
			return &companies[i]
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
