package larch

// SubFileTag names one of the internal sub-files a layer's archive header may
// describe: dictionary blocks, adjacency lists, wavelet-tree indices, or the
// parent pointer.
//
// The set is fixed, finite, and bijective with its on-the-wire numeric
// encoding (see internal/archive). New archive format versions that
// introduce unrecognized tags are rejected, not forwarded blind — see
// DESIGN.md for the open question this resolves.
type SubFileTag string

// The static sub-file dictionary. An implementation may hard-code this
// mapping; nothing about it is derived at runtime.
const (
	TagDictNodesBlocks       = SubFileTag("dict_nodes_blocks")
	TagDictNodesOffsets      = SubFileTag("dict_nodes_offsets")
	TagDictPredicatesBlocks  = SubFileTag("dict_predicates_blocks")
	TagDictPredicatesOffsets = SubFileTag("dict_predicates_offsets")
	TagDictValuesBlocks      = SubFileTag("dict_values_blocks")
	TagDictValuesOffsets     = SubFileTag("dict_values_offsets")

	TagIDMapBits = SubFileTag("idmap_bits")

	TagSPPos  = SubFileTag("sp_pos")
	TagSPNeg  = SubFileTag("sp_neg")
	TagSPOPos = SubFileTag("spo_pos")
	TagSPONeg = SubFileTag("spo_neg")
	TagOPSPos = SubFileTag("ops_pos")
	TagOPSNeg = SubFileTag("ops_neg")

	TagPredicateWaveletBits        = SubFileTag("predicate_wavelet_bits")
	TagPredicateWaveletBlockIndex  = SubFileTag("predicate_wavelet_block_index")
	TagPredicateWaveletSBlockIndex = SubFileTag("predicate_wavelet_sblock_index")

	TagParent = SubFileTag("parent")
)

// subFileTags lists every defined tag, in the stable order used to assign
// on-the-wire numeric codes (see internal/archive.tagCode).
var subFileTags = [...]SubFileTag{
	TagDictNodesBlocks,
	TagDictNodesOffsets,
	TagDictPredicatesBlocks,
	TagDictPredicatesOffsets,
	TagDictValuesBlocks,
	TagDictValuesOffsets,
	TagIDMapBits,
	TagSPPos,
	TagSPNeg,
	TagSPOPos,
	TagSPONeg,
	TagOPSPos,
	TagOPSNeg,
	TagPredicateWaveletBits,
	TagPredicateWaveletBlockIndex,
	TagPredicateWaveletSBlockIndex,
	TagParent,
}

// SubFileTags returns every defined sub-file tag, in a stable order.
func SubFileTags() []SubFileTag {
	out := make([]SubFileTag, len(subFileTags))
	copy(out, subFileTags[:])
	return out
}

// KnownSubFile reports whether tag is a member of the static dictionary.
func KnownSubFile(tag SubFileTag) bool {
	for _, t := range subFileTags {
		if t == tag {
			return true
		}
	}
	return false
}
