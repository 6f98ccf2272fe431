// Package domain models water-quality monitoring records and their
// geographic resolution.
//
// # Data Source
//
// Records originate from the national surface-water monitoring publication
// site. The upstream collector walks the site with a headless browser, flattens
// each table row into an ordered field→value mapping, and hands the rows to
// this service either as water_info_*.xlsx workbooks or as flat JSON messages
// on a Kafka topic. Column names are the site's own (Chinese) headers, e.g.
// 省份 (province), 断面名称 (section name), 水质类别 (quality class).
//
// # Address Derivation
//
// Each record's lookup address is the concatenation of a fixed, ordered list
// of columns, by default 省份 + 断面名称, with blank or missing columns
// skipped and without any separator, matching how Chinese addresses compose
// ("湖北省" + "牛山湖湖心" → "湖北省牛山湖湖心"). The derived address is the
// join key between records and coordinates everywhere in the system: cache
// lookups compare it by exact string match.
//
// # Geocoding
//
// Address resolution is best-effort. The online backend queries the AMap
// geocoding API; the offline backend consults an operator-supplied CSV table
// and additionally allows substring containment as a fallback (first table row
// whose address contains, or is contained by, the query; table order wins, so
// the choice among several plausible rows is order-dependent). A record whose
// address cannot be resolved keeps a nil
// coordinate and is simply excluded from distance queries.
//
// # Coordinates and Distance
//
// Coordinates are WGS-84 degrees, latitude ∈ [-90, 90], longitude ∈
// [-180, 180]. All user-facing distances are great-circle (haversine)
// kilometers on a fixed 6371.0 km sphere. Spatial indexes may retrieve
// candidates through projected coordinates as an acceleration step, but
// haversine is always the authoritative ordering.
//
// # Dataset Generations
//
// The record set is replaced wholesale, never updated in place. A bulk update
// writes every record into a staging table and then swaps staging in as the
// active generation inside a single transaction, so concurrent readers observe
// either the full old generation or the full new one. See the store package.
package domain
