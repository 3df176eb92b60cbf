// SPDX-License-Identifier: MIT
// Copyright (c) 2020 Brian Starkey <stark3y@gmail.com>
package uimage

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// The numeric codes below are part of the on-disk header format and must
// never change.

type OS uint8

const (
	OSOpenBSD OS = iota + 1
	OSNetBSD
	OSFreeBSD
	OS4_4BSD
	OSLinux
	OSSVR4
	OSEsix
	OSSolaris
	OSIrix
	OSSCO
	OSDell
	OSNCR
	OSLynxOS
	OSVxWorks
	OSPSOS
	OSQNX
	OSUBoot
	OSRTEMS
	OSARTOS
	OSUnity
	OSIntegrity
	OSOSE
	OSPlan9
	OSOpenRTOS
)

type Arch uint8

const (
	ArchAlpha Arch = iota + 1
	ArchARM
	ArchI386
	ArchIA64
	ArchMIPS
	ArchMIPS64
	ArchPPC
	ArchS390
	ArchSH
	ArchSPARC
	ArchSPARC64
	ArchM68K
	ArchNIOS
	ArchMicroBlaze
	ArchNIOS2
	ArchBlackfin
	ArchAVR32
	ArchST200
	ArchSandbox
	ArchNDS32
	ArchOpenRISC
	ArchARM64
	ArchARC
	ArchX86_64
	ArchXtensa
)

type ImageType uint8

const (
	TypeStandalone ImageType = iota + 1
	TypeKernel
	TypeRAMDisk
	TypeMulti
	TypeFirmware
	TypeScript
	TypeFilesystem
	TypeFlatDT
	TypeKWB
	TypeIMX
	TypeUBL
	TypeOMAP
	TypeAIS
	TypeKernelNoLoad
	TypePBL
	TypeMXS
	TypeGP
	TypeAtmel
	TypeSOCFPGA
	TypeX86Setup
	TypeLPC32XX
	TypeLoadable
	TypeRKBoot
	TypeRKSD
	TypeRKSPI
	TypeZynq
	TypeZynqMP
	TypeFPGA
	TypeVybrid
	TypeTEE
	TypeFirmwareIVT
	TypePMMC
)

type Compression uint8

const (
	CompNone Compression = iota
	CompGzip
	CompBzip2
	CompLZMA
	CompLZO
	CompLZ4
)

type enumEntry struct {
	code uint8
	name string
	desc string
	// alias entries are accepted by name lookup but never produced by
	// code lookup.
	alias bool
}

type enumTable []enumEntry

func (t enumTable) byCode(code uint8) (enumEntry, bool) {
	return lo.Find(t, func(e enumEntry) bool {
		return !e.alias && e.code == code
	})
}

func (t enumTable) byName(name string) (enumEntry, bool) {
	return lo.Find(t, func(e enumEntry) bool {
		return strings.EqualFold(e.name, name)
	})
}

func (t enumTable) names() []string {
	names := lo.Map(t, func(e enumEntry, _ int) string {
		return e.name
	})
	sort.Strings(names)
	return names
}

func (t enumTable) name(code uint8) string {
	if e, ok := t.byCode(code); ok {
		return e.name
	}
	return fmt.Sprintf("0x%08X", code)
}

func (t enumTable) desc(code uint8) string {
	if e, ok := t.byCode(code); ok {
		return e.desc
	}
	return fmt.Sprintf("Unknown (0x%02X)", code)
}

var osTable = enumTable{
	{uint8(OSLinux), "linux", "Linux", false},
	{uint8(OSLynxOS), "lynxos", "LynxOS", false},
	{uint8(OSNetBSD), "netbsd", "NetBSD", false},
	{uint8(OSOSE), "ose", "Enea OSE", false},
	{uint8(OSPlan9), "plan9", "Plan 9", false},
	{uint8(OSRTEMS), "rtems", "RTEMS", false},
	{uint8(OSUBoot), "u-boot", "U-Boot", false},
	{uint8(OSVxWorks), "vxworks", "VxWorks", false},
	{uint8(OSQNX), "qnx", "QNX", false},
	{uint8(OSIntegrity), "integrity", "INTEGRITY", false},
	{uint8(OS4_4BSD), "4-4bsd", "4-4BSD", false},
	{uint8(OSDell), "dell", "Dell", false},
	{uint8(OSEsix), "esix", "Esix", false},
	{uint8(OSFreeBSD), "freebsd", "FreeBSD", false},
	{uint8(OSIrix), "irix", "Irix", false},
	{uint8(OSNCR), "ncr", "NCR", false},
	{uint8(OSOpenBSD), "openbsd", "OpenBSD", false},
	{uint8(OSPSOS), "psos", "pSOS", false},
	{uint8(OSSCO), "sco", "SCO", false},
	{uint8(OSSolaris), "solaris", "Solaris", false},
	{uint8(OSSVR4), "svr4", "SVR4", false},
	{uint8(OSARTOS), "artos", "ARTOS", false},
	{uint8(OSUnity), "unity", "Unity OS", false},
	{uint8(OSOpenRTOS), "openrtos", "OpenRTOS", false},
}

var archTable = enumTable{
	{uint8(ArchAlpha), "alpha", "Alpha", false},
	{uint8(ArchARM), "arm", "ARM", false},
	{uint8(ArchI386), "x86", "Intel x86", false},
	{uint8(ArchIA64), "ia64", "IA64", false},
	{uint8(ArchM68K), "m68k", "M68K", false},
	{uint8(ArchMicroBlaze), "microblaze", "MicroBlaze", false},
	{uint8(ArchMIPS), "mips", "MIPS", false},
	{uint8(ArchMIPS64), "mips64", "MIPS 64-Bit", false},
	{uint8(ArchNIOS), "nios", "NIOS 32", false},
	{uint8(ArchNIOS2), "nios2", "NIOS II", false},
	{uint8(ArchPPC), "powerpc", "PowerPC", false},
	{uint8(ArchPPC), "ppc", "PowerPC", true},
	{uint8(ArchS390), "s390", "IBM S390", false},
	{uint8(ArchSH), "sh", "SuperH", false},
	{uint8(ArchSPARC), "sparc", "SPARC", false},
	{uint8(ArchSPARC64), "sparc64", "SPARC 64 Bit", false},
	{uint8(ArchBlackfin), "blackfin", "Blackfin", false},
	{uint8(ArchAVR32), "avr32", "AVR32", false},
	{uint8(ArchST200), "st200", "STMicroelectronics ST200", false},
	{uint8(ArchNDS32), "nds32", "NDS32", false},
	{uint8(ArchOpenRISC), "or1k", "OpenRISC 1000", false},
	{uint8(ArchSandbox), "sandbox", "Sandbox", false},
	{uint8(ArchARM64), "arm64", "AArch64", false},
	{uint8(ArchARC), "arc", "ARC", false},
	{uint8(ArchX86_64), "x86_64", "AMD x86_64", false},
	{uint8(ArchXtensa), "xtensa", "Xtensa", false},
}

var typeTable = enumTable{
	{uint8(TypeAIS), "aisimage", "Davinci AIS image", false},
	{uint8(TypeFilesystem), "filesystem", "Filesystem Image", false},
	{uint8(TypeFirmware), "firmware", "Firmware", false},
	{uint8(TypeFlatDT), "flat_dt", "Flat Device Tree", false},
	{uint8(TypeGP), "gpimage", "TI Keystone SPL Image", false},
	{uint8(TypeKernel), "kernel", "Kernel Image", false},
	{uint8(TypeKernelNoLoad), "kernel_noload", "Kernel Image (no loading done)", false},
	{uint8(TypeKWB), "kwbimage", "Kirkwood Boot Image", false},
	{uint8(TypeIMX), "imximage", "Freescale i.MX Boot Image", false},
	{uint8(TypeMulti), "multi", "Multi-File Image", false},
	{uint8(TypeOMAP), "omapimage", "TI OMAP SPL With GP CH", false},
	{uint8(TypePBL), "pblimage", "Freescale PBL Boot Image", false},
	{uint8(TypeRAMDisk), "ramdisk", "RAMDisk Image", false},
	{uint8(TypeScript), "script", "Script", false},
	{uint8(TypeSOCFPGA), "socfpgaimage", "Altera SOCFPGA preloader", false},
	{uint8(TypeStandalone), "standalone", "Standalone Program", false},
	{uint8(TypeUBL), "ublimage", "Davinci UBL image", false},
	{uint8(TypeMXS), "mxsimage", "Freescale MXS Boot Image", false},
	{uint8(TypeAtmel), "atmelimage", "ATMEL ROM-Boot Image", false},
	{uint8(TypeX86Setup), "x86_setup", "x86 setup.bin", false},
	{uint8(TypeLPC32XX), "lpc32xximage", "LPC32XX Boot Image", false},
	{uint8(TypeLoadable), "loadable", "A list of typeless images", false},
	{uint8(TypeRKBoot), "rkimage", "Rockchip Boot Image", false},
	{uint8(TypeRKSD), "rksd", "Rockchip SD Boot Image", false},
	{uint8(TypeRKSPI), "rkspi", "Rockchip SPI Boot Image", false},
	{uint8(TypeVybrid), "vybridimage", "Vybrid Boot Image", false},
	{uint8(TypeZynq), "zynqimage", "Xilinx Zynq Boot Image", false},
	{uint8(TypeZynqMP), "zynqmpimage", "Xilinx ZynqMP Boot Image", false},
	{uint8(TypeFPGA), "fpga", "FPGA Image", false},
	{uint8(TypeTEE), "tee", "Trusted Execution Environment Image", false},
	{uint8(TypeFirmwareIVT), "firmware_ivt", "Firmware with HABv4 IVT", false},
	{uint8(TypePMMC), "pmmc", "TI Power Management Micro-Controller Firmware", false},
}

var compTable = enumTable{
	{uint8(CompNone), "none", "uncompressed", false},
	{uint8(CompGzip), "gzip", "gzip compressed", false},
	{uint8(CompBzip2), "bzip2", "bzip2 compressed", false},
	{uint8(CompLZMA), "lzma", "lzma compressed", false},
	{uint8(CompLZO), "lzo", "lzo compressed", false},
	{uint8(CompLZ4), "lz4", "lz4 compressed", false},
}

// lookup also takes a number, which is how String prints codes missing from
// the table, so that every code survives a text round trip.
func lookup(t enumTable, field, name string) (uint8, error) {
	e, ok := t.byName(name)
	if !ok {
		if code, err := strconv.ParseUint(name, 0, 8); err == nil {
			return uint8(code), nil
		}
		return 0, &ValidationError{
			Field: field,
			Msg:   fmt.Sprintf("unrecognised name '%s'", name),
		}
	}
	return e.code, nil
}

func (o OS) Valid() bool {
	_, ok := osTable.byCode(uint8(o))
	return ok
}

func (o OS) String() string      { return osTable.name(uint8(o)) }
func (o OS) Description() string { return osTable.desc(uint8(o)) }

func ParseOS(name string) (OS, error) {
	c, err := lookup(osTable, "OS type", name)
	return OS(c), err
}

func OSNames() []string { return osTable.names() }

func (o *OS) UnmarshalText(text []byte) error {
	parsed, err := ParseOS(string(text))
	(*o) = parsed
	return err
}

func (o OS) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (a Arch) Valid() bool {
	_, ok := archTable.byCode(uint8(a))
	return ok
}

func (a Arch) String() string      { return archTable.name(uint8(a)) }
func (a Arch) Description() string { return archTable.desc(uint8(a)) }

func ParseArch(name string) (Arch, error) {
	c, err := lookup(archTable, "arch type", name)
	return Arch(c), err
}

func ArchNames() []string { return archTable.names() }

func (a *Arch) UnmarshalText(text []byte) error {
	parsed, err := ParseArch(string(text))
	(*a) = parsed
	return err
}

func (a Arch) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (t ImageType) Valid() bool {
	_, ok := typeTable.byCode(uint8(t))
	return ok
}

func (t ImageType) String() string      { return typeTable.name(uint8(t)) }
func (t ImageType) Description() string { return typeTable.desc(uint8(t)) }

func ParseImageType(name string) (ImageType, error) {
	c, err := lookup(typeTable, "image type", name)
	return ImageType(c), err
}

func ImageTypeNames() []string { return typeTable.names() }

func (t *ImageType) UnmarshalText(text []byte) error {
	parsed, err := ParseImageType(string(text))
	(*t) = parsed
	return err
}

func (t ImageType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (c Compression) Valid() bool {
	_, ok := compTable.byCode(uint8(c))
	return ok
}

func (c Compression) String() string      { return compTable.name(uint8(c)) }
func (c Compression) Description() string { return compTable.desc(uint8(c)) }

func ParseCompression(name string) (Compression, error) {
	code, err := lookup(compTable, "compression type", name)
	return Compression(code), err
}

func CompressionNames() []string { return compTable.names() }

func (c *Compression) UnmarshalText(text []byte) error {
	parsed, err := ParseCompression(string(text))
	(*c) = parsed
	return err
}

func (c Compression) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
