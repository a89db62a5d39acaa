package blaze

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/RoaringBitmap/roaring"
)

// The legacy index serializes to a custom little-endian binary format rather
// than JSON: header + doc-id table + BM25 stats + posting lists, with skip
// list towers rewritten as node indices since in-memory pointers don't
// survive a round trip.

// Encode serializes the index: header, the caller<->internal doc-id table,
// per-document BM25 statistics, then posting lists term by term.
func (idx *InvertedIndex) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)

	if err := idx.encodeHeader(buf); err != nil {
		return nil, err
	}
	if err := idx.encodeDocIDs(buf); err != nil {
		return nil, err
	}
	if err := idx.encodeDocStats(buf); err != nil {
		return nil, err
	}

	encoder := newIndexEncoder(buf)
	for term, skipList := range idx.PostingsList {
		if err := encoder.encodeTerm(term, skipList); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func (idx *InvertedIndex) encodeHeader(buf *bytes.Buffer) error {
	if err := binary.Write(buf, binary.LittleEndian, uint32(idx.TotalDocs)); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint64(idx.TotalTerms)); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, idx.BM25Params.K1); err != nil {
		return err
	}
	return binary.Write(buf, binary.LittleEndian, idx.BM25Params.B)
}

// encodeDocIDs writes the caller id <-> internal id translation table, so
// Decode can rebuild a Legacy index's InvertedIndex without renumbering
// documents (which would desync calculateBM25Score lookups by string id).
func (idx *InvertedIndex) encodeDocIDs(buf *bytes.Buffer) error {
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(idx.docIDs))); err != nil {
		return err
	}
	for callerID, internalID := range idx.docIDs {
		idBytes := []byte(callerID)
		if err := binary.Write(buf, binary.LittleEndian, uint32(len(idBytes))); err != nil {
			return err
		}
		if _, err := buf.Write(idBytes); err != nil {
			return err
		}
		if err := binary.Write(buf, binary.LittleEndian, uint32(internalID)); err != nil {
			return err
		}
	}
	return nil
}

func (idx *InvertedIndex) encodeDocStats(buf *bytes.Buffer) error {
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(idx.DocStats))); err != nil {
		return err
	}
	for _, docStats := range idx.DocStats {
		if err := binary.Write(buf, binary.LittleEndian, uint32(docStats.DocID)); err != nil {
			return err
		}
		if err := binary.Write(buf, binary.LittleEndian, uint32(docStats.Length)); err != nil {
			return err
		}
		if err := binary.Write(buf, binary.LittleEndian, uint32(len(docStats.TermFreqs))); err != nil {
			return err
		}
		for term, freq := range docStats.TermFreqs {
			termBytes := []byte(term)
			if err := binary.Write(buf, binary.LittleEndian, uint32(len(termBytes))); err != nil {
				return err
			}
			if _, err := buf.Write(termBytes); err != nil {
				return err
			}
			if err := binary.Write(buf, binary.LittleEndian, uint32(freq)); err != nil {
				return err
			}
		}
	}
	return nil
}

// indexEncoder tracks the output buffer across the multi-phase term
// encoding below, rather than threading it through every function.
type indexEncoder struct {
	buffer *bytes.Buffer
}

func newIndexEncoder(buffer *bytes.Buffer) *indexEncoder {
	return &indexEncoder{buffer: buffer}
}

// encodeTerm writes one term's name, its node positions, then its tower
// structure (pointers rewritten as node indices).
func (e *indexEncoder) encodeTerm(term string, skipList SkipList) error {
	if err := e.writeString(term); err != nil {
		return err
	}

	nodeMap := e.buildNodeIndexMap(skipList)

	nodeData := e.encodeNodePositions(skipList)
	if err := e.writeBytes(nodeData); err != nil {
		return err
	}

	return e.encodeTowerStructure(skipList, nodeMap)
}

func (e *indexEncoder) writeString(s string) error {
	data := []byte(s)
	if err := binary.Write(e.buffer, binary.LittleEndian, uint32(len(data))); err != nil {
		return err
	}
	_, err := e.buffer.Write(data)
	return err
}

func (e *indexEncoder) writeBytes(data []byte) error {
	if err := binary.Write(e.buffer, binary.LittleEndian, uint32(len(data))); err != nil {
		return err
	}
	_, err := e.buffer.Write(data)
	return err
}

// buildNodeIndexMap assigns each node a stable sequential index (1, 2, ...)
// since the in-memory Tower pointers are meaningless once deserialized.
func (e *indexEncoder) buildNodeIndexMap(skipList SkipList) map[nodePosition]int {
	nodeMap := make(map[nodePosition]int)
	current := skipList.Head
	index := 1 // 0 is reserved for nil

	for current != nil {
		pos := nodePosition{
			DocID:    int32(current.Key.DocumentID),
			Position: int32(current.Key.Offset),
		}
		nodeMap[pos] = index
		index++
		current = current.Tower[0]
	}

	return nodeMap
}

// encodeNodePositions writes every node's (DocID, Offset) pair, 8 bytes each.
func (e *indexEncoder) encodeNodePositions(skipList SkipList) []byte {
	buf := new(bytes.Buffer)
	current := skipList.Head

	for current != nil {
		binary.Write(buf, binary.LittleEndian, int32(current.Key.DocumentID))
		binary.Write(buf, binary.LittleEndian, int32(current.Key.Offset))
		current = current.Tower[0]
	}

	return buf.Bytes()
}

// encodeTowerStructure writes each node's tower as a list of target node
// indices, in node order.
func (e *indexEncoder) encodeTowerStructure(skipList SkipList, nodeMap map[nodePosition]int) error {
	current := skipList.Head

	for current != nil {
		towerData := e.encodeTowerForNode(current, nodeMap)
		if err := e.writeBytes(towerData); err != nil {
			return err
		}
		current = current.Tower[0]
	}

	return nil
}

// encodeTowerForNode writes a single node's tower as uint16 target indices;
// an empty tower writes a single 0.
func (e *indexEncoder) encodeTowerForNode(node *Node, nodeMap map[nodePosition]int) []byte {
	buf := new(bytes.Buffer)

	towerIndices := e.collectTowerIndices(node, nodeMap)
	if len(towerIndices) == 0 {
		binary.Write(buf, binary.LittleEndian, uint16(0))
	} else {
		for _, index := range towerIndices {
			binary.Write(buf, binary.LittleEndian, uint16(index))
		}
	}

	return buf.Bytes()
}

func (e *indexEncoder) collectTowerIndices(node *Node, nodeMap map[nodePosition]int) []int {
	var indices []int

	for level := 0; level < MaxHeight; level++ {
		if node.Tower[level] == nil {
			break
		}
		pos := nodePosition{
			DocID:    int32(node.Tower[level].Key.DocumentID),
			Position: int32(node.Tower[level].Key.Offset),
		}
		indices = append(indices, nodeMap[pos])
	}

	return indices
}

// nodePosition is the compact, pointer-free key used to identify a node
// across encode/decode.
type nodePosition struct {
	DocID    int32
	Position int32
}

// Decode reverses Encode: header, doc-id table, BM25 stats, then posting
// lists are read back in the same order they were written.
func (idx *InvertedIndex) Decode(data []byte) error {
	offset := 0

	newOffset, err := idx.decodeHeader(data, offset)
	if err != nil {
		return err
	}
	offset = newOffset

	newOffset, err = idx.decodeDocIDs(data, offset)
	if err != nil {
		return err
	}
	offset = newOffset

	newOffset, err = idx.decodeDocStats(data, offset)
	if err != nil {
		return err
	}
	offset = newOffset

	decoder := newIndexDecoder(data, offset)
	recoveredIndex := make(map[string]SkipList)

	for !decoder.isComplete() {
		term, skipList, err := decoder.decodeTerm()
		if err != nil {
			return err
		}
		recoveredIndex[term] = skipList
	}

	idx.PostingsList = recoveredIndex
	idx.rebuildDocBitmaps()
	return nil
}

// decodeDocIDs reads the caller id <-> internal id translation table.
func (idx *InvertedIndex) decodeDocIDs(data []byte, offset int) (int, error) {
	numEntries := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
	offset += 4

	idx.docIDs = make(map[string]int, numEntries)
	idx.docIDsRev = make(map[int]string, numEntries)
	idx.nextDocID = 0

	for i := 0; i < numEntries; i++ {
		length := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
		offset += 4
		callerID := string(data[offset : offset+length])
		offset += length
		internalID := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
		offset += 4

		idx.docIDs[callerID] = internalID
		idx.docIDsRev[internalID] = callerID
		if internalID >= idx.nextDocID {
			idx.nextDocID = internalID + 1
		}
	}

	return offset, nil
}

// rebuildDocBitmaps reconstructs the document-level roaring bitmaps from
// the decoded position-level posting lists; Decode only reconstructs
// PostingsList directly, so calculateIDF's bitmap cardinality lookups would
// otherwise see an index with no document frequency data after a snapshot
// restore.
func (idx *InvertedIndex) rebuildDocBitmaps() {
	idx.DocBitmaps = make(map[string]*roaring.Bitmap, len(idx.PostingsList))
	for term, skipList := range idx.PostingsList {
		bitmap := roaring.NewBitmap()
		current := skipList.Head.Tower[0]
		for current != nil {
			bitmap.Add(uint32(current.Key.GetDocumentID()))
			current = current.Tower[0]
		}
		idx.DocBitmaps[term] = bitmap
	}
}

func (idx *InvertedIndex) decodeHeader(data []byte, offset int) (int, error) {
	idx.TotalDocs = int(binary.LittleEndian.Uint32(data[offset : offset+4]))
	offset += 4

	idx.TotalTerms = int64(binary.LittleEndian.Uint64(data[offset : offset+8]))
	offset += 8

	idx.BM25Params.K1 = math.Float64frombits(binary.LittleEndian.Uint64(data[offset : offset+8]))
	offset += 8

	idx.BM25Params.B = math.Float64frombits(binary.LittleEndian.Uint64(data[offset : offset+8]))
	offset += 8

	return offset, nil
}

func (idx *InvertedIndex) decodeDocStats(data []byte, offset int) (int, error) {
	numDocs := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
	offset += 4

	idx.DocStats = make(map[int]DocumentStats, numDocs)

	for i := 0; i < numDocs; i++ {
		docID := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
		offset += 4

		length := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
		offset += 4

		numTerms := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
		offset += 4

		docStats := DocumentStats{
			DocID:     docID,
			Length:    length,
			TermFreqs: make(map[string]int, numTerms),
		}

		for j := 0; j < numTerms; j++ {
			termLen := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
			offset += 4

			term := string(data[offset : offset+termLen])
			offset += termLen

			freq := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
			offset += 4

			docStats.TermFreqs[term] = freq
		}

		idx.DocStats[docID] = docStats
	}

	return offset, nil
}

// indexDecoder tracks position across the byte stream the way indexEncoder
// tracks the output buffer.
type indexDecoder struct {
	data   []byte
	offset int
}

func newIndexDecoder(data []byte, offset int) *indexDecoder {
	return &indexDecoder{data: data, offset: offset}
}

func (d *indexDecoder) isComplete() bool {
	return d.offset >= len(d.data)
}

// decodeTerm reads one term's name, node positions, and tower structure,
// reconnecting the nodes into a SkipList.
func (d *indexDecoder) decodeTerm() (string, SkipList, error) {
	term, err := d.readString()
	if err != nil {
		return "", SkipList{}, err
	}

	nodeMap, err := d.decodeNodePositions()
	if err != nil {
		return "", SkipList{}, err
	}

	height, err := d.decodeTowerStructure(nodeMap)
	if err != nil {
		return "", SkipList{}, err
	}

	skipList := SkipList{
		Head:   nodeMap[1],
		Height: height,
	}

	return term, skipList, nil
}

func (d *indexDecoder) readString() (string, error) {
	length := int(binary.LittleEndian.Uint32(d.data[d.offset : d.offset+4]))
	d.offset += 4

	str := string(d.data[d.offset : d.offset+length])
	d.offset += length

	return str, nil
}

// decodeNodePositions rebuilds bare Node objects (no tower links yet) from
// their serialized (DocID, Offset) pairs, indexed 1, 2, 3, ... in write order.
func (d *indexDecoder) decodeNodePositions() (map[int]*Node, error) {
	dataLength := int(binary.LittleEndian.Uint32(d.data[d.offset : d.offset+4]))
	d.offset += 4

	nodeMap := make(map[int]*Node)
	nodeIndex := 1

	numValues := dataLength / 4
	for i := 0; i < numValues; i += 2 {
		docID := int32(binary.LittleEndian.Uint32(d.data[d.offset : d.offset+4]))
		d.offset += 4

		offset := int32(binary.LittleEndian.Uint32(d.data[d.offset : d.offset+4]))
		d.offset += 4

		node := &Node{
			Key: Position{
				DocumentID: float64(docID),
				Offset:     float64(offset),
			},
		}

		nodeMap[nodeIndex] = node
		nodeIndex++
	}

	return nodeMap, nil
}

// decodeTowerStructure reconnects the bare nodes from decodeNodePositions
// using the serialized target indices, returning the tallest tower seen.
func (d *indexDecoder) decodeTowerStructure(nodeMap map[int]*Node) (int, error) {
	maxHeight := 1
	nodeCount := len(nodeMap)

	for nodeIndex := 1; nodeIndex <= nodeCount; nodeIndex++ {
		towerLength := int(binary.LittleEndian.Uint32(d.data[d.offset : d.offset+4]))
		d.offset += 4

		numIndices := towerLength / 2

		for level := 0; level < numIndices; level++ {
			targetIndex := int(binary.LittleEndian.Uint16(d.data[d.offset : d.offset+2]))
			d.offset += 2

			if targetIndex != 0 {
				nodeMap[nodeIndex].Tower[level] = nodeMap[targetIndex]
				if level+1 > maxHeight {
					maxHeight = level + 1
				}
			}
		}
	}

	return maxHeight, nil
}
