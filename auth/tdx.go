package auth

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"

	tdx_abi "github.com/google/go-tdx-guest/abi"
	tdx_client "github.com/google/go-tdx-guest/client"
	tdx_pb "github.com/google/go-tdx-guest/proto/tdx"

	"github.com/liwenju0/deepenc/cryptoutils"
	"github.com/liwenju0/deepenc/interfaces"
)

// DefaultSealedLicensePath is where the provisioning agent drops the
// hardware-sealed license inside the guest.
const DefaultSealedLicensePath = "/run/deepenc/license.sealed"

// TDXBinding implements the hardware capability interface on top of an
// Intel TDX guest device. The device identity is the TD measurement (MRTD)
// extracted from a quote; license material is sealed to a key derived from
// that measurement, so a license copied to a different machine does not
// decrypt.
type TDXBinding struct {
	// LicensePath overrides DefaultSealedLicensePath.
	LicensePath string

	log *slog.Logger

	// measurement is cached after the first successful quote.
	measurement []byte
}

// DiscoverBinding probes for a usable hardware key device. Absence is a
// normal, expected outcome: callers degrade to the next key source.
func DiscoverBinding(log *slog.Logger) (interfaces.HardwareBinding, bool) {
	if log == nil {
		log = slog.Default()
	}

	qp := &tdx_client.LinuxConfigFsQuoteProvider{}
	if qp.IsSupported() == nil {
		log.Debug("TDX configfs quote provider available")
		return &TDXBinding{log: log}, true
	}

	qd, err := tdx_client.OpenDevice()
	if err != nil {
		log.Debug("No TDX guest device present", "err", err)
		return nil, false
	}
	qd.Close()

	log.Debug("TDX guest device available")
	return &TDXBinding{log: log}, true
}

// DeviceID returns a stable identifier derived from the TD measurement.
func (b *TDXBinding) DeviceID() (string, error) {
	m, err := b.tdMeasurement()
	if err != nil {
		return "", err
	}
	// The full MRTD is 48 bytes; the first 16 are plenty for scoping
	// license filenames.
	return hex.EncodeToString(m[:16]), nil
}

// ReadLicense reads the sealed license blob provisioned for this device.
func (b *TDXBinding) ReadLicense() ([]byte, error) {
	path := b.LicensePath
	if path == "" {
		path = DefaultSealedLicensePath
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sealed license: %w", err)
	}
	return blob, nil
}

// DecryptLicense unseals license material with a key derived from the TD
// measurement.
func (b *TDXBinding) DecryptLicense(blob []byte) ([]byte, error) {
	m, err := b.tdMeasurement()
	if err != nil {
		return nil, err
	}

	unsealKey := cryptoutils.DeriveKey(m, []byte("license-unseal"))
	plaintext, err := cryptoutils.OpenLicense(unsealKey, blob)
	if err != nil {
		return nil, fmt.Errorf("unsealing license: %w", err)
	}
	return plaintext, nil
}

// tdMeasurement fetches a quote and extracts the MRTD, caching the result.
func (b *TDXBinding) tdMeasurement() ([]byte, error) {
	if b.measurement != nil {
		return b.measurement, nil
	}

	raw, err := b.rawQuote()
	if err != nil {
		return nil, fmt.Errorf("fetching TDX quote: %w", err)
	}

	protoQuote, err := tdx_abi.QuoteToProto(raw)
	if err != nil {
		return nil, fmt.Errorf("could not parse quote: %w", err)
	}

	v4Quote, ok := protoQuote.(*tdx_pb.QuoteV4)
	if !ok {
		return nil, fmt.Errorf("unsupported quote type: %T", protoQuote)
	}

	b.measurement = v4Quote.TdQuoteBody.MrTd
	if b.log != nil {
		b.log.Debug("TD measurement cached",
			slog.String("mrtd", hex.EncodeToString(b.measurement[:8])))
	}
	return b.measurement, nil
}

func (b *TDXBinding) rawQuote() ([]byte, error) {
	var reportData [64]byte

	qp := &tdx_client.LinuxConfigFsQuoteProvider{}
	if qp.IsSupported() == nil {
		return qp.GetRawQuote(reportData)
	}

	qd, err := tdx_client.OpenDevice()
	if err != nil {
		return nil, err
	}
	defer qd.Close()

	return tdx_client.GetRawQuote(qd, reportData)
}
