package domain

import "strings"

var (
	modeloLabels = map[string]string{
		"55": "55 - NF-E EMITIDA EM SUBSTITUIÇÃO AO MODELO 1 OU 1A",
		"65": "65 - NFC-E",
	}
	indicadorIELabels = map[string]string{
		"1": "1 - Contribuinte ICMS",
		"2": "2 - Contribuinte isento de Inscrição no cadastro de Contribuintes",
		"9": "9 - Não Contribuinte",
	}
	destinoOperacaoLabels = map[string]string{
		"1": "1 - Interna",
		"2": "2 - Interestadual",
		"3": "3 - Exterior",
	}
	consumidorFinalLabels = map[string]string{
		"0": "0 - Não",
		"1": "1 - Sim",
	}
	presencaCompradorLabels = map[string]string{
		"0": "0 - Não se aplica",
		"1": "1 - Operação presencial",
		"2": "2 - Operação não presencial, pela Internet",
		"3": "3 - Operação não presencial, Teleatendimento",
		"4": "4 - NFC-e em operação com entrega a domicílio",
		"5": "5 - Operação presencial, fora do estabelecimento",
		"9": "9 - Operação não presencial, outros",
	}
)

// Unknown codes are returned unchanged.
func DescribeModelo(code string) string            { return describe(modeloLabels, code) }
func DescribeIndicadorIE(code string) string       { return describe(indicadorIELabels, code) }
func DescribeDestinoOperacao(code string) string   { return describe(destinoOperacaoLabels, code) }
func DescribeConsumidorFinal(code string) string   { return describe(consumidorFinalLabels, code) }
func DescribePresencaComprador(code string) string { return describe(presencaCompradorLabels, code) }

func describe(labels map[string]string, code string) string {
	code = strings.TrimSpace(code)
	if label, ok := labels[code]; ok {
		return label
	}
	return code
}
