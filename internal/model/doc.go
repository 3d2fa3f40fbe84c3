// Package model defines entity types, the registry that resolves their
// compatibility classes, and the entity values collections are asked about.
//
// An entity type is one of three kinds:
//
//   - concrete: owns a table
//   - proxy (proxy_of): shares the target's table and identity space
//   - child (parent): multi-table inheritance; owns a table keyed by a
//     pointer to the parent row and is read through a view that joins
//     the parent
//
// The compatibility class of a type is the concrete or child type reached
// by following proxy_of links. Proxies are therefore interchangeable with
// their target, while a child and its parent never are.
//
// Entity types are declared in CUE:
//
//	entity: ObjectA: {
//		table: "object_a"
//		fields: { name: string }
//	}
//	entity: ProxyObjectA: { proxy_of: "ObjectA" }
//	entity: ChildObjectA: {
//		parent: "ObjectA"
//		table:  "child_object_a"
//		fields: { extra?: string }
//	}
//
// A models directory holds package-less .cue files; LoadDir unifies them.
package model
