// Package readout derives the typed, human-facing readouts from a merged record:
// one per registry field, the stolen flag, and the diagnostic values.
package readout

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind classifies how a field's value is presented.
type Kind string

const (
	// KindPlain is shown as reported.
	KindPlain Kind = "plain"
	// KindDate is a calendar date.
	KindDate Kind = "date"
	// KindMeasurement is a number with a unit.
	KindMeasurement Kind = "measurement"
	// KindMonetary is an amount in euros.
	KindMonetary Kind = "monetary"
)

// Units
const (
	UnitKilograms       = "kg"
	UnitCentimeters     = "cm"
	UnitCubicCentimeter = "cm³"
	UnitKilometersHour  = "km/h"
	UnitEuro            = "EUR"
	UnitKilowattPerKg   = "kW/kg"
)

// Description is the presentation metadata for one registry field.
type Description struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
	Unit string `json:"unit,omitempty"`
	Icon string `json:"icon,omitempty"`
}

var descriptions = map[string]Description{
	"vervaldatum_apk_dt":                          {Kind: KindDate},
	"datum_tenaamstelling_dt":                     {Kind: KindDate},
	"datum_eerste_toelating_dt":                   {Kind: KindDate},
	"datum_eerste_tenaamstelling_in_nederland_dt": {Kind: KindDate},
	"massa_ledig_voertuig":                        {Kind: KindMeasurement, Unit: UnitKilograms, Icon: "mdi:weight-kilogram"},
	"toegestane_maximum_massa_voertuig":           {Kind: KindMeasurement, Unit: UnitKilograms, Icon: "mdi:weight-kilogram"},
	"massa_rijklaar":                              {Kind: KindMeasurement, Unit: UnitKilograms, Icon: "mdi:weight-kilogram"},
	"maximum_massa_trekken_ongeremd":              {Kind: KindMeasurement, Unit: UnitKilograms, Icon: "mdi:weight-kilogram"},
	"maximum_trekken_massa_geremd":                {Kind: KindMeasurement, Unit: UnitKilograms, Icon: "mdi:weight-kilogram"},
	"cilinderinhoud":                              {Kind: KindMeasurement, Unit: UnitCubicCentimeter, Icon: "mdi:engine"},
	"lengte":                                      {Kind: KindMeasurement, Unit: UnitCentimeters, Icon: "mdi:arrow-left-right-bold"},
	"breedte":                                     {Kind: KindMeasurement, Unit: UnitCentimeters, Icon: "mdi:arrow-expand-horizontal"},
	"hoogte_voertuig":                             {Kind: KindMeasurement, Unit: UnitCentimeters, Icon: "mdi:arrow-up-down-bold"},
	"wielbasis":                                   {Kind: KindMeasurement, Unit: UnitCentimeters, Icon: "mdi:car-cog"},
	"maximale_constructiesnelheid":                {Kind: KindMeasurement, Unit: UnitKilometersHour, Icon: "mdi:speedometer"},
	"catalogusprijs":                              {Kind: KindMonetary, Unit: UnitEuro, Icon: "mdi:currency-eur"},
	"bruto_bpm":                                   {Kind: KindMonetary, Unit: UnitEuro, Icon: "mdi:currency-eur"},
	"vermogen_massarijklaar":                      {Kind: KindMeasurement, Unit: UnitKilowattPerKg, Icon: "mdi:flash"},
}

// Describe returns the description for key. Fields without specific metadata are plain.
func Describe(key string) Description {
	d, ok := descriptions[key]
	if !ok {
		d = Description{Kind: KindPlain}
	}
	d.Key = key
	d.Name = DisplayName(key)
	return d
}

// DisplayName turns a registry key into a readable name:
// underscores become spaces, a trailing "_dt" becomes " Date", and the first letter is upper case.
func DisplayName(key string) string {
	name := strings.ReplaceAll(key, "_", " ")
	name = strings.ReplaceAll(name, " dt", " Date")
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}
