package registry

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// CertificationABI is the interface of the Certification registry contract.
const CertificationABI = `[
  {"type":"function","name":"generateCertificate","stateMutability":"nonpayable",
   "inputs":[
     {"name":"_certificate_id","type":"string"},
     {"name":"_uid","type":"string"},
     {"name":"_candidate_name","type":"string"},
     {"name":"_course_name","type":"string"},
     {"name":"_org_name","type":"string"},
     {"name":"_ipfs_hash","type":"string"}],
   "outputs":[]},
  {"type":"function","name":"getCertificate","stateMutability":"view",
   "inputs":[{"name":"_certificate_id","type":"string"}],
   "outputs":[
     {"name":"","type":"string"},
     {"name":"","type":"string"},
     {"name":"","type":"string"},
     {"name":"","type":"string"},
     {"name":"","type":"string"}]},
  {"type":"function","name":"isVerified","stateMutability":"view",
   "inputs":[{"name":"_certificate_id","type":"string"}],
   "outputs":[{"name":"","type":"bool"}]}
]`

var certificationABI = mustParseABI(CertificationABI)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}

// Certification is a typed binding to the registry contract.
type Certification struct {
	contract *bind.BoundContract
}

func NewCertification(address common.Address, backend bind.ContractBackend) *Certification {
	return &Certification{
		contract: bind.NewBoundContract(address, certificationABI, backend, backend, backend),
	}
}

// CertificationRecord mirrors the getCertificate return tuple.
type CertificationRecord struct {
	UID           string
	CandidateName string
	CourseName    string
	OrgName       string
	IpfsHash      string
}

func (c *Certification) IsVerified(opts *bind.CallOpts, certificateID string) (bool, error) {
	var out []interface{}
	if err := c.contract.Call(opts, &out, "isVerified", certificateID); err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (c *Certification) GetCertificate(opts *bind.CallOpts, certificateID string) (CertificationRecord, error) {
	var out []interface{}
	if err := c.contract.Call(opts, &out, "getCertificate", certificateID); err != nil {
		return CertificationRecord{}, err
	}

	str := func(i int) string { return *abi.ConvertType(out[i], new(string)).(*string) }
	return CertificationRecord{
		UID:           str(0),
		CandidateName: str(1),
		CourseName:    str(2),
		OrgName:       str(3),
		IpfsHash:      str(4),
	}, nil
}

func (c *Certification) GenerateCertificate(
	opts *bind.TransactOpts,
	certificateID, uid, candidateName, courseName, orgName, ipfsHash string,
) (*types.Transaction, error) {
	return c.contract.Transact(opts, "generateCertificate",
		certificateID, uid, candidateName, courseName, orgName, ipfsHash)
}
