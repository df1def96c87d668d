package derive

import "math"

// Constants follow the values used by MetPy so results agree with the
// scientific Python stack.
const (
	// MolarMassWater and MolarMassDryAir are in g/mol.
	MolarMassWater  = 18.015268
	MolarMassDryAir = 28.96546

	// Epsilon is the ratio of the molar masses of water and dry air.
	Epsilon = MolarMassWater / MolarMassDryAir

	// Kappa is R_d / c_pd.
	Kappa = 2.0 / 7.0

	// ReferencePressure is the potential temperature reference level in hPa.
	ReferencePressure = 1000.0

	// Freezing is 0 degC in kelvin.
	Freezing = 273.15
)

// CombineTemperatures uses the non-deiced reading unless it is below
// freezing, where the deiced reading replaces it.
func CombineTemperatures(nonDeiced, deiced float64) float64 {
	if nonDeiced < Freezing {
		return deiced
	}
	return nonDeiced
}

// SpecificHumidityFromMoleFraction converts a water vapour mole fraction
// (mol/mol) to specific humidity (kg/kg).
func SpecificHumidityFromMoleFraction(x float64) float64 {
	return MolarMassWater * x / (MolarMassWater*x + MolarMassDryAir*(1-x))
}

// SaturationVaporPressure in hPa over liquid water at t kelvin (Bolton 1980).
func SaturationVaporPressure(t float64) float64 {
	return 6.112 * math.Exp(17.67*(t-Freezing)/(t-29.65))
}

// PotentialTemperature from pressure in hPa and temperature in K.
func PotentialTemperature(p, t float64) float64 {
	return t * math.Pow(ReferencePressure/p, Kappa)
}

// MixingRatioFromSpecificHumidity converts kg/kg of moist air to kg/kg of
// dry air.
func MixingRatioFromSpecificHumidity(q float64) float64 {
	return q / (1 - q)
}

// RelativeHumidityFromDewpoint returns a fraction, not a percentage.
func RelativeHumidityFromDewpoint(t, td float64) float64 {
	return SaturationVaporPressure(td) / SaturationVaporPressure(t)
}

// VirtualTemperature from temperature in K and mixing ratio in kg/kg.
func VirtualTemperature(t, w float64) float64 {
	return t * (w + Epsilon) / (Epsilon * (1 + w))
}

// VirtualPotentialTemperature from pressure in hPa, temperature in K and
// mixing ratio in kg/kg.
func VirtualPotentialTemperature(p, t, w float64) float64 {
	return PotentialTemperature(p, VirtualTemperature(t, w))
}

// EquivalentPotentialTemperature uses Bolton (1980) equations 15, 22 and
// 39 with pressure in hPa and temperatures in K.
func EquivalentPotentialTemperature(p, t, td float64) float64 {
	e := SaturationVaporPressure(td)
	r := Epsilon * e / (p - e)
	tl := 56 + 1/(1/(td-56)+math.Log(t/td)/800)
	thetaL := PotentialTemperature(p-e, t) * math.Pow(t/tl, 0.28*r)
	return thetaL * math.Exp(r*(1+0.448*r)*(3036/tl-1.78))
}
