// taxonomy.go - Taxonomy tree assembly.
//
// The store returns flat rows; the API serves the nested
// category -> subcategory -> segment tree. BuildTaxonomy does the join
// in memory so the store stays simple SQL.
package catalog

import "sort"

// TaxonomyNode is one category with its nested children.
type TaxonomyNode struct {
	Category      Category
	Subcategories []SubcategoryNode
}

type SubcategoryNode struct {
	Subcategory Subcategory
	Segments    []Segment
}

// BuildTaxonomy assembles the tree from flat rows. Orphaned rows (parent
// deleted out from under them, which the schema prevents) are dropped.
// Output is sorted by name at every level for stable rendering.
func BuildTaxonomy(categories []Category, subcategories []Subcategory, segments []Segment) []TaxonomyNode {
	segmentsBySub := make(map[string][]Segment)
	for _, seg := range segments {
		segmentsBySub[seg.SubcategoryID] = append(segmentsBySub[seg.SubcategoryID], seg)
	}

	subsByCat := make(map[string][]SubcategoryNode)
	for _, sub := range subcategories {
		segs := segmentsBySub[sub.ID]
		sort.Slice(segs, func(i, j int) bool { return segs[i].Name < segs[j].Name })
		subsByCat[sub.CategoryID] = append(subsByCat[sub.CategoryID], SubcategoryNode{
			Subcategory: sub,
			Segments:    segs,
		})
	}

	nodes := make([]TaxonomyNode, 0, len(categories))
	for _, cat := range categories {
		subs := subsByCat[cat.ID]
		sort.Slice(subs, func(i, j int) bool { return subs[i].Subcategory.Name < subs[j].Subcategory.Name })
		nodes = append(nodes, TaxonomyNode{Category: cat, Subcategories: subs})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Category.Name < nodes[j].Category.Name })
	return nodes
}
