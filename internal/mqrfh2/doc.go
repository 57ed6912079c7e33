// Package mqrfh2 encodes and decodes the RFH2 header that carries JMS
// metadata in front of a transport payload.
//
// Layout (all integers big-endian):
//
//	0   4  structure id "RFH "
//	4   4  version (2)
//	8   4  total header length, prefix plus folders
//	12  4  encoding
//	16  4  coded character set id
//	20  8  format of the data that follows
//	28  4  flags
//	32  4  character set of the folder bodies
//	36  .. folders: 4-byte length, XML body padded with spaces to a multiple of 4
//
// Folders are modelled as flat lists of leaf elements. Only the mcd, jms and
// usr roots are understood.
package mqrfh2
