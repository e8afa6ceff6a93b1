// Package workspace maintains the metadata index over saved workspace
// documents. The index is one JSON file listing every known workspace;
// each workspace owns exactly one notebook document on disk. When the
// index is missing or unreadable the store rebuilds it by scanning the
// documents directory, distinguishing native documents (which embed a
// workspace identity block) from foreign notebooks that merely parse.
package workspace
