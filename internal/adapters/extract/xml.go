package extract

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/enzopoeta/i2a2-final/internal/domain"
	"github.com/shopspring/decimal"
)

const NFeNamespace = "http://www.portalfiscal.inf.br/nfe"

var (
	icmsGroups   = []string{"ICMS00", "ICMS10", "ICMS20", "ICMS30", "ICMS40", "ICMS51", "ICMS60", "ICMS70", "ICMS90", "ICMSSN101", "ICMSSN102", "ICMSSN201", "ICMSSN202", "ICMSSN500", "ICMSSN900"}
	pisGroups    = []string{"PISAliq", "PISQtde", "PISNT", "PISOutr"}
	cofinsGroups = []string{"COFINSAliq", "COFINSQtde", "COFINSNT", "COFINSOutr"}
)

type xmlInfNFe struct {
	ID    string     `xml:"Id,attr"`
	Ide   xmlIde     `xml:"ide"`
	Emit  xmlEmit    `xml:"emit"`
	Dest  *xmlDest   `xml:"dest"`
	Det   []xmlDet   `xml:"det"`
	Total *xmlICMSTo `xml:"total>ICMSTot"`
}

type xmlIde struct {
	Mod      string `xml:"mod"`
	Serie    string `xml:"serie"`
	NNF      string `xml:"nNF"`
	NatOp    string `xml:"natOp"`
	DhEmi    string `xml:"dhEmi"`
	IDDest   string `xml:"idDest"`
	IndFinal string `xml:"indFinal"`
	IndPres  string `xml:"indPres"`
}

type xmlEmit struct {
	CNPJ  string   `xml:"CNPJ"`
	CPF   string   `xml:"CPF"`
	XNome string   `xml:"xNome"`
	IE    string   `xml:"IE"`
	Ender xmlEnder `xml:"enderEmit"`
}

type xmlDest struct {
	CNPJ      string   `xml:"CNPJ"`
	XNome     string   `xml:"xNome"`
	IndIEDest string   `xml:"indIEDest"`
	Ender     xmlEnder `xml:"enderDest"`
}

type xmlEnder struct {
	UF   string `xml:"UF"`
	XMun string `xml:"xMun"`
}

type xmlDet struct {
	NItem   string      `xml:"nItem,attr"`
	Prod    *xmlProd    `xml:"prod"`
	Imposto *xmlImposto `xml:"imposto"`
}

type xmlProd struct {
	XProd  string `xml:"xProd"`
	NCM    string `xml:"NCM"`
	CFOP   string `xml:"CFOP"`
	QCom   string `xml:"qCom"`
	UCom   string `xml:"uCom"`
	VUnCom string `xml:"vUnCom"`
	VProd  string `xml:"vProd"`
}

type xmlImposto struct {
	VTotTrib   string         `xml:"vTotTrib"`
	ICMS       *xmlTaxChoice  `xml:"ICMS"`
	ICMSUFDest *xmlICMSUFDest `xml:"ICMSUFDest"`
	IPI        *xmlIPI        `xml:"IPI"`
	PIS        *xmlTaxChoice  `xml:"PIS"`
	COFINS     *xmlTaxChoice  `xml:"COFINS"`
}

// xmlTaxChoice captures whichever variant group sits under ICMS, PIS or COFINS.
type xmlTaxChoice struct {
	Groups []xmlTaxGroup `xml:",any"`
}

type xmlTaxGroup struct {
	XMLName xml.Name
	Orig    string `xml:"orig"`
	CST     string `xml:"CST"`
	CSOSN   string `xml:"CSOSN"`
	ModBC   string `xml:"modBC"`
	VBC     string `xml:"vBC"`
	PICMS   string `xml:"pICMS"`
	VICMS   string `xml:"vICMS"`
	PPIS    string `xml:"pPIS"`
	VPIS    string `xml:"vPIS"`
	PCOFINS string `xml:"pCOFINS"`
	VCOFINS string `xml:"vCOFINS"`
}

func (c *xmlTaxChoice) pick(order []string) *xmlTaxGroup {
	if c == nil {
		return nil
	}
	for _, name := range order {
		for i := range c.Groups {
			if c.Groups[i].XMLName.Local == name {
				return &c.Groups[i]
			}
		}
	}
	return nil
}

type xmlICMSUFDest struct {
	VBCUFDest      string `xml:"vBCUFDest"`
	VBCFCPUFDest   string `xml:"vBCFCPUFDest"`
	PFCPUFDest     string `xml:"pFCPUFDest"`
	PICMSUFDest    string `xml:"pICMSUFDest"`
	PICMSInter     string `xml:"pICMSInter"`
	PICMSInterPart string `xml:"pICMSInterPart"`
	VFCPUFDest     string `xml:"vFCPUFDest"`
	VICMSUFDest    string `xml:"vICMSUFDest"`
	VICMSUFRemet   string `xml:"vICMSUFRemet"`
}

type xmlIPI struct {
	CEnq    string       `xml:"cEnq"`
	IPITrib *xmlIPIGroup `xml:"IPITrib"`
	IPINT   *xmlIPIGroup `xml:"IPINT"`
}

type xmlIPIGroup struct {
	CST  string `xml:"CST"`
	VBC  string `xml:"vBC"`
	PIPI string `xml:"pIPI"`
	VIPI string `xml:"vIPI"`
}

type xmlICMSTo struct {
	VBC          string `xml:"vBC"`
	VICMS        string `xml:"vICMS"`
	VICMSDeson   string `xml:"vICMSDeson"`
	VFCPUFDest   string `xml:"vFCPUFDest"`
	VICMSUFDest  string `xml:"vICMSUFDest"`
	VICMSUFRemet string `xml:"vICMSUFRemet"`
	VBCST        string `xml:"vBCST"`
	VST          string `xml:"vST"`
	VIPI         string `xml:"vIPI"`
	VIPIDevol    string `xml:"vIPIDevol"`
	VPIS         string `xml:"vPIS"`
	VCOFINS      string `xml:"vCOFINS"`
	VII          string `xml:"vII"`
	VTotTrib     string `xml:"vTotTrib"`
	VProd        string `xml:"vProd"`
	VFrete       string `xml:"vFrete"`
	VSeg         string `xml:"vSeg"`
	VDesc        string `xml:"vDesc"`
	VOutro       string `xml:"vOutro"`
	VNF          string `xml:"vNF"`
}

// ParseXML extracts one document from an NFe XML. The infNFe element may sit
// at any depth (bare NFe or nfeProc wrapper).
func ParseXML(data []byte) (domain.Document, error) {
	inf, err := findInfNFe(data)
	if err != nil {
		return domain.Document{}, err
	}
	key := domain.NormalizeAccessKey(inf.ID)
	if key == "" {
		return domain.Document{}, fmt.Errorf("%w: chave de acesso not found", domain.ErrInvalidInput)
	}
	if err := domain.ValidateAccessKey(key); err != nil {
		return domain.Document{}, err
	}

	doc := domain.Document{NotaFiscal: headerFromXML(key, inf), Items: []domain.LineItem{}}
	for idx, det := range inf.Det {
		position := idx + 1
		numero, ok := domain.ParseInt(det.NItem)
		if !ok || numero < 1 {
			numero = position
		}
		if det.Prod != nil {
			doc.Items = append(doc.Items, itemFromXML(key, doc.NotaFiscal.HeaderSnapshot, numero, det.Prod))
		}
		if det.Imposto != nil {
			doc.ImpostosItems = append(doc.ImpostosItems, itemTaxesFromXML(key, numero, det.Imposto))
		}
	}
	if inf.Total != nil {
		doc.ImpostosNota = totalsFromXML(key, inf.Total)
	}
	return doc, nil
}

func findInfNFe(data []byte) (xmlInfNFe, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return xmlInfNFe{}, fmt.Errorf("%w: infNFe element not found", domain.ErrInvalidInput)
		}
		if err != nil {
			return xmlInfNFe{}, fmt.Errorf("%w: invalid XML format: %v", domain.ErrInvalidInput, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "infNFe" || start.Name.Space != NFeNamespace {
			continue
		}
		var inf xmlInfNFe
		if err := decoder.DecodeElement(&inf, &start); err != nil {
			return xmlInfNFe{}, fmt.Errorf("%w: invalid XML format: %v", domain.ErrInvalidInput, err)
		}
		return inf, nil
	}
}

func headerFromXML(key string, inf xmlInfNFe) domain.FiscalDocument {
	snap := domain.HeaderSnapshot{
		Modelo:                    domain.DescribeModelo(text(inf.Ide.Mod)),
		SerieNF:                   text(inf.Ide.Serie),
		NumeroNF:                  text(inf.Ide.NNF),
		NaturezaOperacao:          text(inf.Ide.NatOp),
		DataEmissao:               domain.DateFrom(inf.Ide.DhEmi),
		CPFCNPJEmitente:           firstNonEmpty(inf.Emit.CNPJ, inf.Emit.CPF),
		RazaoSocialEmitente:       text(inf.Emit.XNome),
		InscricaoEstadualEmitente: text(inf.Emit.IE),
		UFEmitente:                text(inf.Emit.Ender.UF),
		MunicipioEmitente:         text(inf.Emit.Ender.XMun),
		DestinoOperacao:           domain.DescribeDestinoOperacao(text(inf.Ide.IDDest)),
		ConsumidorFinal:           domain.DescribeConsumidorFinal(text(inf.Ide.IndFinal)),
		PresencaComprador:         domain.DescribePresencaComprador(text(inf.Ide.IndPres)),
	}
	if inf.Dest != nil {
		snap.CNPJDestinatario = text(inf.Dest.CNPJ)
		snap.NomeDestinatario = text(inf.Dest.XNome)
		snap.UFDestinatario = text(inf.Dest.Ender.UF)
		snap.IndicadorIEDestinatario = domain.DescribeIndicadorIE(text(inf.Dest.IndIEDest))
	}
	header := domain.FiscalDocument{ChaveAcesso: key, HeaderSnapshot: snap, ValorNotaFiscal: decimal.Zero}
	if inf.Total != nil {
		header.ValorNotaFiscal = domain.ParseDecimal(inf.Total.VNF, decimal.Zero)
	}
	return header
}

func itemFromXML(key string, snap domain.HeaderSnapshot, numero int, prod *xmlProd) domain.LineItem {
	return domain.LineItem{
		ChaveAcessoNF:    key,
		HeaderSnapshot:   snap,
		NumeroProduto:    numero,
		DescricaoProduto: text(prod.XProd),
		CodigoNCMSH:      text(prod.NCM),
		CFOP:             text(prod.CFOP),
		Quantidade:       domain.ParseDecimal(prod.QCom, decimal.Zero),
		Unidade:          text(prod.UCom),
		ValorUnitario:    domain.ParseDecimal(prod.VUnCom, decimal.Zero),
		ValorTotal:       domain.ParseDecimal(prod.VProd, decimal.Zero),
	}
}

func itemTaxesFromXML(key string, numero int, imp *xmlImposto) domain.ItemTaxBreakdown {
	out := domain.ItemTaxBreakdown{
		ChaveAcessoNF: key,
		NumeroItem:    numero,
		VTotTrib:      domain.ParseNullDecimal(imp.VTotTrib),
	}
	if g := imp.ICMS.pick(icmsGroups); g != nil {
		out.ICMSOrig = domain.ParseIntPtr(g.Orig)
		out.ICMSCST = firstNonEmpty(g.CST, g.CSOSN)
		out.ICMSModBC = domain.ParseIntPtr(g.ModBC)
		out.ICMSVBC = domain.ParseNullDecimal(g.VBC)
		out.ICMSPICMS = domain.ParsePercentage(g.PICMS)
		out.ICMSVICMS = domain.ParseNullDecimal(g.VICMS)
	}
	if u := imp.ICMSUFDest; u != nil {
		out.ICMSUFVBCUFDest = domain.ParseNullDecimal(u.VBCUFDest)
		out.ICMSUFVBCFCPUFDest = domain.ParseNullDecimal(u.VBCFCPUFDest)
		out.ICMSUFPFCPUFDest = domain.ParsePercentage(u.PFCPUFDest)
		out.ICMSUFPICMSUFDest = domain.ParsePercentage(u.PICMSUFDest)
		out.ICMSUFPICMSInter = domain.ParsePercentage(u.PICMSInter)
		out.ICMSUFPICMSInterPart = domain.ParsePercentage(u.PICMSInterPart)
		out.ICMSUFVFCPUFDest = domain.ParseNullDecimal(u.VFCPUFDest)
		out.ICMSUFVICMSUFDest = domain.ParseNullDecimal(u.VICMSUFDest)
		out.ICMSUFVICMSUFRemet = domain.ParseNullDecimal(u.VICMSUFRemet)
	}
	if ipi := imp.IPI; ipi != nil {
		out.IPICEnq = text(ipi.CEnq)
		group := ipi.IPITrib
		if group == nil {
			group = ipi.IPINT
		}
		if group != nil {
			out.IPICST = text(group.CST)
			out.IPIVBC = domain.ParseNullDecimal(group.VBC)
			out.IPIPIPI = domain.ParsePercentage(group.PIPI)
			out.IPIVIPI = domain.ParseNullDecimal(group.VIPI)
		}
	}
	if g := imp.PIS.pick(pisGroups); g != nil {
		out.PISCST = text(g.CST)
		out.PISVBC = domain.ParseNullDecimal(g.VBC)
		out.PISPPIS = domain.ParsePercentage(g.PPIS)
		out.PISVPIS = domain.ParseNullDecimal(g.VPIS)
	}
	if g := imp.COFINS.pick(cofinsGroups); g != nil {
		out.COFINSCST = text(g.CST)
		out.COFINSVBC = domain.ParseNullDecimal(g.VBC)
		out.COFINSPCOFINS = domain.ParsePercentage(g.PCOFINS)
		out.COFINSVCOFINS = domain.ParseNullDecimal(g.VCOFINS)
	}
	return out
}

func totalsFromXML(key string, t *xmlICMSTo) *domain.DocumentTaxTotals {
	return &domain.DocumentTaxTotals{
		ChaveAcessoNF: key,
		VBCICMS:       domain.ParseNullDecimal(t.VBC),
		VICMS:         domain.ParseNullDecimal(t.VICMS),
		VICMSDeson:    domain.ParseNullDecimal(t.VICMSDeson),
		VFCPUFDest:    domain.ParseNullDecimal(t.VFCPUFDest),
		VICMSUFDest:   domain.ParseNullDecimal(t.VICMSUFDest),
		VICMSUFRemet:  domain.ParseNullDecimal(t.VICMSUFRemet),
		VBCST:         domain.ParseNullDecimal(t.VBCST),
		VST:           domain.ParseNullDecimal(t.VST),
		VIPI:          domain.ParseNullDecimal(t.VIPI),
		VIPIDevol:     domain.ParseNullDecimal(t.VIPIDevol),
		VPIS:          domain.ParseNullDecimal(t.VPIS),
		VCOFINS:       domain.ParseNullDecimal(t.VCOFINS),
		VII:           domain.ParseNullDecimal(t.VII),
		VTotTrib:      domain.ParseNullDecimal(t.VTotTrib),
		VProd:         domain.ParseNullDecimal(t.VProd),
		VFrete:        domain.ParseNullDecimal(t.VFrete),
		VSeg:          domain.ParseNullDecimal(t.VSeg),
		VDesc:         domain.ParseNullDecimal(t.VDesc),
		VOutro:        domain.ParseNullDecimal(t.VOutro),
		VNF:           domain.ParseNullDecimal(t.VNF),
	}
}

func text(v string) string {
	return strings.TrimSpace(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := text(v); s != "" {
			return s
		}
	}
	return ""
}
