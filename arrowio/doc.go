// Package arrowio exports decoded PLY elements to Apache Arrow.
//
// Record wraps the columns of an element without copying, since both sides
// keep one contiguous host-order buffer per property. Fixed-width lists map
// to fixed_size_list and ragged lists to large_list, whose int64 offsets are
// the ones stored by the column:
//
//	el, _ := store.Element("vertex")
//	rec, err := arrowio.Record(el)
//	if err != nil {
//	    return err
//	}
//	defer rec.Release()
//
// WriteFile and ReadFile move an element through the Arrow IPC file format.
package arrowio
