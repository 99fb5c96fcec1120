package icd

import (
	"context"
	"fmt"

	"github.com/moffa90/go-x65icd/protocol"
)

// ReadArea reads n bytes at offset inside one of the non-SRAM areas.
func (s *Session) ReadArea(ctx context.Context, region protocol.Region, offset uint32, n int) ([]byte, error) {
	addr, err := areaAddress(region, offset, n)
	if err != nil {
		return nil, err
	}
	return s.busRead(ctx, protocol.AreaOther, addr, n)
}

// WriteArea writes data at offset inside one of the non-SRAM areas.
func (s *Session) WriteArea(ctx context.Context, region protocol.Region, offset uint32, data []byte) error {
	addr, err := areaAddress(region, offset, len(data))
	if err != nil {
		return err
	}
	return s.busWrite(ctx, protocol.AreaOther, addr, data)
}

// ReadBankRegs reads the RAMBLOCK and ROMBLOCK registers.
func (s *Session) ReadBankRegs(ctx context.Context) ([]byte, error) {
	return s.ReadArea(ctx, protocol.RegionBankRegs, 0, protocol.RegionBankRegs.Size())
}

// WriteBankRegs writes the bank registers starting at offset.
func (s *Session) WriteBankRegs(ctx context.Context, offset uint32, data []byte) error {
	return s.WriteArea(ctx, protocol.RegionBankRegs, offset, data)
}

// ReadIORegs reads n IO registers of the 0x9F00 page starting at offset.
func (s *Session) ReadIORegs(ctx context.Context, offset uint32, n int) ([]byte, error) {
	return s.ReadArea(ctx, protocol.RegionIORegs, offset, n)
}

// WriteIORegs writes IO registers of the 0x9F00 page starting at offset.
func (s *Session) WriteIORegs(ctx context.Context, offset uint32, data []byte) error {
	return s.WriteArea(ctx, protocol.RegionIORegs, offset, data)
}

// ReadBootROM reads n bytes of the boot ROM starting at offset.
func (s *Session) ReadBootROM(ctx context.Context, offset uint32, n int) ([]byte, error) {
	return s.ReadArea(ctx, protocol.RegionBootROM, offset, n)
}

// WriteBootROM writes the boot ROM starting at offset.
func (s *Session) WriteBootROM(ctx context.Context, offset uint32, data []byte) error {
	return s.WriteArea(ctx, protocol.RegionBootROM, offset, data)
}

// areaAddress maps offset to the bus address of region, rejecting accesses
// that would run past the end of the region.
func areaAddress(region protocol.Region, offset uint32, n int) (uint32, error) {
	size := region.Size()
	if size == 0 {
		return 0, fmt.Errorf("unknown region %d", int(region))
	}
	if n < 0 || uint64(offset)+uint64(n) > uint64(size) {
		return 0, fmt.Errorf("%s: %d bytes at offset 0x%X: %w", region, n, offset, ErrAddressRange)
	}
	return protocol.OtherAreaAddress(region, offset)
}
