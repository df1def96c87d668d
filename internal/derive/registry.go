package derive

import "github.com/eurec4a/twinotter/internal/flight"

// Canonical variable names.
const (
	AirPressure                        = "air_pressure"
	AirTemperature                     = "air_temperature"
	DewPointTemperature                = "dew_point_temperature"
	Altitude                           = "altitude"
	Longitude                          = "longitude"
	Latitude                           = "latitude"
	RollAngle                          = "platform_roll_angle"
	EastwardWind                       = "eastward_wind"
	NorthwardWind                      = "northward_wind"
	UpwardAirVelocity                  = "upward_air_velocity"
	WaterVapourMoleFraction            = "mole_fraction_of_water_vapor_in_air"
	CarbonDioxideMoleFraction          = "mole_fraction_of_carbon_dioxide_in_air"
	SpecificHumidity                   = "specific_humidity"
	MixingRatio                        = "humidity_mixing_ratio"
	RelativeHumidity                   = "relative_humidity"
	PotentialTemperatureName           = "air_potential_temperature"
	EquivalentPotentialTemperatureName = "equivalent_potential_temperature"
	VirtualPotentialTemperatureName    = "virtual_potential_temperature"
)

// DefaultRegistry wires the MASIN core channels to their canonical names
// and registers the thermodynamic derivations.
func DefaultRegistry() *Registry {
	r := NewRegistry().
		Alias(AirPressure, "PS_AIR").
		Alias(DewPointTemperature, "TDEW_BUCK").
		Alias(Altitude, "ALT_OXTS").
		Alias(Longitude, "LON_OXTS").
		Alias(Latitude, "LAT_OXTS").
		Alias(RollAngle, "ROLL_OXTS").
		Alias(EastwardWind, "U_OXTS").
		Alias(NorthwardWind, "V_OXTS").
		Alias(UpwardAirVelocity, "W_OXTS").
		Alias(WaterVapourMoleFraction, "H2O_LICOR").
		Alias(CarbonDioxideMoleFraction, "CO2_LICOR")

	r.Register(AirTemperature, "K",
		func(a ...float64) float64 { return CombineTemperatures(a[0], a[1]) },
		"TAT_ND_R", "TAT_DI_R")
	r.Register(SpecificHumidity, "kg kg-1",
		func(a ...float64) float64 { return SpecificHumidityFromMoleFraction(a[0]) },
		WaterVapourMoleFraction)
	r.Register(PotentialTemperatureName, "K",
		func(a ...float64) float64 { return PotentialTemperature(a[0], a[1]) },
		AirPressure, AirTemperature)
	r.Register(EquivalentPotentialTemperatureName, "K",
		func(a ...float64) float64 { return EquivalentPotentialTemperature(a[0], a[1], a[2]) },
		AirPressure, AirTemperature, DewPointTemperature)
	r.Register(MixingRatio, "kg kg-1",
		func(a ...float64) float64 { return MixingRatioFromSpecificHumidity(a[0]) },
		SpecificHumidity)
	r.Register(RelativeHumidity, "1",
		func(a ...float64) float64 { return RelativeHumidityFromDewpoint(a[0], a[1]) },
		AirTemperature, DewPointTemperature)
	r.Register(VirtualPotentialTemperatureName, "K",
		func(a ...float64) float64 { return VirtualPotentialTemperature(a[0], a[1], a[2]) },
		AirPressure, AirTemperature, MixingRatio)

	return r
}

var defaultRegistry = DefaultRegistry()

// Calculate resolves name against ds with the default registry.
func Calculate(name string, ds *flight.Dataset) (*flight.Variable, error) {
	return defaultRegistry.Calculate(name, ds)
}

// Resolve classifies name against ds with the default registry.
func Resolve(name string, ds *flight.Dataset) Resolution {
	return defaultRegistry.Resolve(name, ds)
}

// Names lists the names the default registry knows.
func Names() []string {
	return defaultRegistry.Names()
}
