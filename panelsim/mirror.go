// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package panelsim

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"sync"

	"github.com/GermanBionicSystems/paneldrv/internal/syncutil"
)

// ImageFormat is the encoding of the frames sent by ServeHTTP.
type ImageFormat int

// Image formats.
const (
	PNG ImageFormat = iota
	JPEG
)

func (f ImageFormat) String() string {
	switch f {
	case PNG:
		return "PNG"
	case JPEG:
		return "JPEG"
	default:
		return fmt.Sprint(int(f))
	}
}

func (f ImageFormat) mimeType() string {
	if f == JPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// ParseImageFormat returns the ImageFormat for a format abbreviation.
func ParseImageFormat(value string) (ImageFormat, error) {
	switch value {
	case "", "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	}
	return PNG, fmt.Errorf("unrecognized image format %q", value)
}

var jpegOptions = jpeg.Options{Quality: 95}

// mirror tracks the HTTP clients watching the panel.
type mirror struct {
	mu       syncutil.Mutex
	clients  map[*client]struct{}
	snapshot map[ImageFormat][]byte
}

type client struct {
	refresh   chan struct{}
	terminate chan struct{}
}

// invalidate drops the cached encodings and wakes the clients.
func (m *mirror) invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.snapshot)
	for c := range m.clients {
		select {
		case c.refresh <- struct{}{}:
		default:
		}
	}
}

// Close disconnects the HTTP clients. It implements io.Closer so the driver
// closes it on teardown.
func (p *Panel) Close() error {
	p.mirror.mu.Lock()
	defer p.mirror.mu.Unlock()
	for c := range p.mirror.clients {
		select {
		case c.terminate <- struct{}{}:
		default:
		}
	}
	return nil
}

// encode returns the frame in format f, cached until the next memory write.
func (p *Panel) encode(f ImageFormat) ([]byte, error) {
	p.mirror.mu.Lock()
	defer p.mirror.mu.Unlock()
	if b, ok := p.mirror.snapshot[f]; ok {
		return b, nil
	}
	var buf bytes.Buffer
	var err error
	if f == JPEG {
		err = jpeg.Encode(&buf, p.Frame(), &jpegOptions)
	} else {
		err = pngEncoder.Encode(&buf, p.Frame())
	}
	if err != nil {
		return nil, err
	}
	p.mirror.snapshot[f] = buf.Bytes()
	return buf.Bytes(), nil
}

// ServeHTTP handles HTTP GET requests and sends a stream of images of the
// panel memory, a new one after every memory write. Clients pick the format
// with the "format" parameter ("?format=png", "?format=jpeg"); PNG is the
// default.
func (p *Panel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.Body.Close()
	if r.Method != http.MethodGet {
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}
	f, err := ParseImageFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c := &client{
		refresh:   make(chan struct{}, 1),
		terminate: make(chan struct{}, 1),
	}
	p.mirror.mu.Lock()
	p.mirror.clients[c] = struct{}{}
	p.mirror.mu.Unlock()
	defer func() {
		p.mirror.mu.Lock()
		delete(p.mirror.clients, c)
		p.mirror.mu.Unlock()
	}()

	s := newFrameStream(w, f.mimeType())
	for {
		payload, err := p.encode(f)
		if err != nil {
			p.log.Error().Err(err).Msg("encoding frame failed")
			return
		}
		if err := s.send(payload); err != nil {
			p.log.Debug().Err(err).Msg("mirror client gone")
			return
		}
		select {
		case <-c.refresh:
		case <-c.terminate:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// frameStream writes images as the parts of a multipart/x-mixed-replace
// response. Each part is followed by the boundary so that readers can
// finish it without waiting for the next frame.
type frameStream struct {
	w        http.ResponseWriter
	mimeType string
	boundary string
	sent     int
}

func newFrameStream(w http.ResponseWriter, mimeType string) *frameStream {
	s := &frameStream{
		w:        w,
		mimeType: mimeType,
		boundary: multipart.NewWriter(io.Discard).Boundary(),
	}
	w.Header().Set("Content-Type", mime.FormatMediaType("multipart/x-mixed-replace", map[string]string{"boundary": s.boundary}))
	return s
}

func (s *frameStream) send(img []byte) error {
	buf := framePool.Get().(*bytes.Buffer)
	defer framePool.Put(buf)
	buf.Reset()
	if s.sent == 0 {
		fmt.Fprintf(buf, "--%s\r\n", s.boundary)
	}
	fmt.Fprintf(buf, "Content-Type: %s\r\nContent-Length: %d\r\n\r\n", s.mimeType, len(img))
	buf.Write(img)
	fmt.Fprintf(buf, "\r\n--%s\r\n", s.boundary)
	if _, err := buf.WriteTo(s.w); err != nil {
		return err
	}
	s.sent++
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

var framePool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

// encoderPool shares the PNG encoder scratch buffers between encodes.
type encoderPool struct{ sync.Pool }

func (p *encoderPool) Get() *png.EncoderBuffer {
	b, _ := p.Pool.Get().(*png.EncoderBuffer)
	return b
}

func (p *encoderPool) Put(b *png.EncoderBuffer) {
	p.Pool.Put(b)
}

var pngEncoder = png.Encoder{CompressionLevel: png.BestSpeed, BufferPool: &encoderPool{}}
