package capture

import (
	"gonetcap/internal/models"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// FileSource replays frames from a pcap or pcapng file.
// NextFrame returns io.EOF once the file is exhausted.
type FileSource struct {
	file     *os.File
	reader   gopacket.PacketDataSource
	linkType layers.LinkType
}

// OpenFile opens a capture file, trying pcapng first and falling back to pcap.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DeviceError{Device: path, Op: "open file", Err: err}
	}

	if ng, err := pcapgo.NewNgReader(f, pcapgo.DefaultNgReaderOptions); err == nil {
		return &FileSource{file: f, reader: ng, linkType: ng.LinkType()}, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, &DeviceError{Device: path, Op: "rewind file", Err: err}
	}

	r, err := pcapgo.NewReader(f)
	if err != nil {
		f.Close()
		return nil, &DeviceError{Device: path, Op: "read file header", Err: err}
	}
	return &FileSource{file: f, reader: r, linkType: r.LinkType()}, nil
}

// NextFrame returns the next frame in file order.
func (s *FileSource) NextFrame() (models.Frame, error) {
	data, ci, err := s.reader.ReadPacketData()
	if err != nil {
		return models.Frame{}, err
	}
	return models.Frame{Data: data, Timestamp: ci.Timestamp}, nil
}

// LinkType returns the link type recorded in the file header.
func (s *FileSource) LinkType() layers.LinkType {
	return s.linkType
}

// Close closes the underlying file.
func (s *FileSource) Close() error {
	return s.file.Close()
}
