package record

// KnownKeys lists the registry fields that are carried into a record, in display order.
// Anything else in the registry response is dropped.
var KnownKeys = []string{
	"kenteken", "voertuigsoort", "merk", "handelsbenaming", "vervaldatum_apk",
	"datum_tenaamstelling", "bruto_bpm", "inrichting", "aantal_zitplaatsen",
	"eerste_kleur", "tweede_kleur", "aantal_cilinders", "cilinderinhoud",
	"massa_ledig_voertuig", "toegestane_maximum_massa_voertuig", "massa_rijklaar",
	"maximum_massa_trekken_ongeremd", "maximum_trekken_massa_geremd",
	"datum_eerste_toelating", "datum_eerste_tenaamstelling_in_nederland",
	"wacht_op_keuren", "catalogusprijs", "wam_verzekerd",
	"maximale_constructiesnelheid", "aantal_deuren", "aantal_wielen", "lengte",
	"breedte", "europese_voertuigcategorie", "technische_max_massa_voertuig",
	"type", "typegoedkeuringsnummer", "variant", "uitvoering",
	"volgnummer_wijziging_eu_typegoedkeuring", "vermogen_massarijklaar",
	"wielbasis", "export_indicator", "openstaande_terugroepactie_indicator",
	"taxi_indicator", "maximum_massa_samenstelling",
	"jaar_laatste_registratie_tellerstand", "tellerstandoordeel",
	"code_toelichting_tellerstandoordeel", "tenaamstellen_mogelijk",
	"vervaldatum_apk_dt", "datum_tenaamstelling_dt", "datum_eerste_toelating_dt",
	"datum_eerste_tenaamstelling_in_nederland_dt", "hoogte_voertuig",
	"zuinigheidsclassificatie",
}

var knownKeySet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(KnownKeys))
	for _, k := range KnownKeys {
		m[k] = struct{}{}
	}
	return m
}()

// IsKnownKey reports whether key is one of KnownKeys.
func IsKnownKey(key string) bool {
	_, ok := knownKeySet[key]
	return ok
}
