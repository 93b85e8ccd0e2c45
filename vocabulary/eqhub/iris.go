// Package eqhub holds the namespace and term IRIs used when projecting EqHub
// equipment into IMF/SHACL shaped graphs.
package eqhub

// Standard namespaces.
const (
	RDFNamespace   = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFSNamespace  = "http://www.w3.org/2000/01/rdf-schema#"
	XSDNamespace   = "http://www.w3.org/2001/XMLSchema#"
	SHACLNamespace = "http://www.w3.org/ns/shacl#"

	// IMFNamespace is the Information Modelling Framework ontology.
	IMFNamespace = "http://ns.imfid.org/imf#"
)

// Term IRIs read from shape documents.
const (
	RDFType = RDFNamespace + "type"

	// ClassBlockType types the root node of an equipment class shape.
	ClassBlockType = IMFNamespace + "BlockType"

	SHACLPath     = SHACLNamespace + "path"
	SHACLHasValue = SHACLNamespace + "hasValue"

	// PropertyRelationSuffix selects relations leading from a shape to its
	// property constraint nodes (sh:property and IMF specialisations of it).
	PropertyRelationSuffix = "property"
)

// EqHub and POSC Caesar locations.
const (
	// IDPrefix is stripped from mapping table subjects to obtain the EqHub
	// identifier used in equipment JSON.
	IDPrefix = "https://draft.posccaesar.org/eqhub/v0.0.0.41/Id/"

	// PublishedBase is the base of shape documents as published.
	PublishedBase = "https://posccaesar.org"

	// DraftBase is the base of the draft environment shapes are redirected to.
	DraftBase = "https://draft.posccaesar.org"

	// EquipmentNamespace is the default base for equipment subject IRIs.
	EquipmentNamespace = "https://example.org/equipment/"
)

// Prefixes returns the namespace prefixes used when writing equipment graphs.
func Prefixes() map[string]string {
	return map[string]string{
		"rdf":  RDFNamespace,
		"rdfs": RDFSNamespace,
		"xsd":  XSDNamespace,
		"sh":   SHACLNamespace,
		"imf":  IMFNamespace,
		"eq":   EquipmentNamespace,
	}
}
