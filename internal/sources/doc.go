// Package sources provides the two data sources consulted for a vehicle.
//
// The package defines the RegistrySource and StolenCheckSource interfaces
// which abstract the retrieval of vehicle data for a single license plate.
//
// Architecture:
//   - RegistrySource: fetches structured facts and reports typed failures
//     (*FetchError with ConnectionFailure, Timeout, NoDataFound or ProtocolError)
//   - StolenCheckSource: scrapes an HTML register and always yields a
//     tri-state status; every failure maps to unknown
//   - MarkerRule: decides the stolen status from a fetched page and can be
//     swapped without touching the callers
//
// Current implementations:
//   - RDWRegistry: the RDW open-data JSON endpoint, decoded with gjson
//   - StolenRegister: the stolen-vehicle register page, parsed with
//     golang.org/x/net/html and queried with goquery
//   - PhraseMarkerRule: "no result" phrase inside a selector; absence of the
//     phrase is read as a positive match
//
// All implementations share a single httpclient.Client and are safe for
// concurrent use.
package sources
