package entity

// Requester quién origina el envío. Conjunto cerrado de variantes: la marca paga siempre
// con su billetera, aunque el envío lo cree un distribuidor o un centro de servicio.
type Requester interface {
	payerBrandID() string
	Kind() string
}

// Variantes de solicitante.
const (
	RequesterBrand         = "brand"
	RequesterDistributor   = "distributor"
	RequesterServiceCenter = "service_center"
)

// BrandRequester la propia marca.
type BrandRequester struct {
	BrandID string
}

func (r BrandRequester) payerBrandID() string { return r.BrandID }
func (r BrandRequester) Kind() string         { return RequesterBrand }

// DistributorRequester distribuidor que despacha por cuenta de una marca.
type DistributorRequester struct {
	DistributorID string
	BrandID       string
}

func (r DistributorRequester) payerBrandID() string { return r.BrandID }
func (r DistributorRequester) Kind() string         { return RequesterDistributor }

// ServiceCenterRequester centro de servicio que devuelve o solicita repuestos de una marca.
type ServiceCenterRequester struct {
	ServiceCenterID string
	BrandID         string
}

func (r ServiceCenterRequester) payerBrandID() string { return r.BrandID }
func (r ServiceCenterRequester) Kind() string         { return RequesterServiceCenter }

// ChargeableBrand marca cuya billetera se debita. Vacío si no hay solicitante.
func ChargeableBrand(r Requester) string {
	if r == nil {
		return ""
	}
	return r.payerBrandID()
}

// NewRequester construye la variante a partir del tipo declarado.
func NewRequester(kind, brandID, actorID string) (Requester, bool) {
	switch kind {
	case "", RequesterBrand:
		return BrandRequester{BrandID: brandID}, true
	case RequesterDistributor:
		return DistributorRequester{DistributorID: actorID, BrandID: brandID}, true
	case RequesterServiceCenter:
		return ServiceCenterRequester{ServiceCenterID: actorID, BrandID: brandID}, true
	}
	return nil, false
}
